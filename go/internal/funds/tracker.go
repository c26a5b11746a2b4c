package funds

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the balance polling cadence.
const DefaultInterval = time.Second

// WealthyThreshold is the balance at which the wallet needs no faucet top-up.
const WealthyThreshold = 200

// BalanceSource queries the ledger for an address balance.
type BalanceSource interface {
	GetBalance(ctx context.Context, addr wallet.Address, assetID string) (uint64, error)
}

// AddressSource yields the address to poll. It is read on every refresh so
// rotations are picked up without restarting the tracker.
type AddressSource interface {
	Address() wallet.Address
}

// Tracker polls the balance of the current address in the background.
type Tracker struct {
	clock     clockwork.Clock
	source    BalanceSource
	addresses AddressSource
	assetID   string

	mu         sync.RWMutex
	balance    uint64
	observedAt time.Time

	// runMu guards the single recurring refresh loop.
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker(clock clockwork.Clock, source BalanceSource, addresses AddressSource, assetID string) *Tracker {
	return &Tracker{
		clock:     clock,
		source:    source,
		addresses: addresses,
		assetID:   assetID,
	}
}

// Refresh fetches the balance once. Errors are expected while the node is
// unreachable; they keep the previous balance and are not returned.
func (t *Tracker) Refresh(ctx context.Context) {
	addr := t.addresses.Address()
	amount, err := t.source.GetBalance(ctx, addr, t.assetID)
	if err != nil {
		log.Debug().
			Err(err).
			Str("address", addr.String()).
			Msg("balance refresh failed, keeping previous balance")
		return
	}

	t.mu.Lock()
	t.balance = amount
	t.observedAt = t.clock.Now()
	t.mu.Unlock()
}

// Start schedules a refresh every interval. Any loop started earlier is
// cancelled and waited for first, so at most one recurring timer exists.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	t.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	ticker := t.clock.NewTicker(interval)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.run(runCtx, ticker, done)

	log.Debug().Dur("interval", interval).Msg("funds tracker started")
}

// Stop cancels the recurring refresh, if any.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

func (t *Tracker) run(ctx context.Context, ticker clockwork.Ticker, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.Refresh(ctx)
		}
	}
}

// Balance returns the last observed balance and when it was observed.
func (t *Tracker) Balance() (uint64, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balance, t.observedAt
}

func (t *Tracker) Wealthy() bool {
	b, _ := t.Balance()
	return b >= WealthyThreshold
}
