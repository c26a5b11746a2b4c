package wallet

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Identity is the read-only view of the session's addresses used by the round
// machine, the funds tracker and the bet pipeline.
type Identity interface {
	// Address returns the current address.
	Address() Address
	// Owns reports whether addr is the current address or one rotated away from.
	Owns(addr Address) bool
}

// Ledger derives and rotates the session's addresses. The history of previously
// used addresses is append-only and rotation is serialized by the ledger's lock.
type Ledger struct {
	mu      sync.RWMutex
	seed    Seed
	index   uint64
	address Address
	keyPair KeyPair
	history []Address
}

// NewLedger creates a ledger positioned at index 0.
func NewLedger(seed Seed) *Ledger {
	l := &Ledger{seed: seed}
	l.setIndexLocked(0)
	return l
}

// SetIndex moves the ledger to index without touching the history.
func (l *Ledger) SetIndex(index uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setIndexLocked(index)
}

func (l *Ledger) setIndexLocked(index uint64) {
	l.index = index
	l.keyPair = DeriveKeyPair(l.seed, index)
	l.address = AddressFromPublicKey(l.keyPair.PublicKey)
}

// Rotate appends the current address to the history, advances the index by
// one and returns the newly derived address.
func (l *Ledger) Rotate() Address {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.address
	l.history = append(l.history, previous)
	l.setIndexLocked(l.index + 1)

	log.Debug().
		Str("previous", previous.String()).
		Str("address", l.address.String()).
		Uint64("index", l.index).
		Msg("rotated wallet address")

	return l.address
}

func (l *Ledger) Address() Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.address
}

func (l *Ledger) KeyPair() KeyPair {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keyPair
}

// Current returns the address and its key pair as one consistent pair.
func (l *Ledger) Current() (Address, KeyPair) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.address, l.keyPair
}

func (l *Ledger) Index() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index
}

// History returns a copy of the rotated-away addresses, oldest first.
func (l *Ledger) History() []Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.history)
}

func (l *Ledger) Owns(addr Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return addr == l.address || slices.Contains(l.history, addr)
}

func (l *Ledger) Seed() Seed {
	return l.seed
}
