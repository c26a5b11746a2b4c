package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SeedSize is the length of a wallet seed in bytes.
const SeedSize = 32

// AddressVersionED25519 prefixes addresses backed by an ed25519 public key.
const AddressVersionED25519 byte = 0x00

// AddressSize is the version byte plus the blake2b-256 digest of the public key.
const AddressSize = 1 + blake2b.Size256

var (
	ErrInvalidSeed    = errors.New("invalid seed")
	ErrInvalidAddress = errors.New("invalid address")
)

// Seed is the root secret every address and key pair of a session is derived from.
type Seed [SeedSize]byte

// GenerateSeed returns a fresh random seed.
func GenerateSeed() (Seed, error) {
	var s Seed
	if _, err := rand.Read(s[:]); err != nil {
		return Seed{}, fmt.Errorf("read random seed: %w", err)
	}
	return s, nil
}

// ParseSeed decodes a base58 encoded seed.
func ParseSeed(encoded string) (Seed, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(raw) != SeedSize {
		return Seed{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, SeedSize, len(raw))
	}
	var s Seed
	copy(s[:], raw)
	return s, nil
}

func (s Seed) String() string {
	return base58.Encode(s[:])
}

// Address identifies a wallet on the ledger.
type Address [AddressSize]byte

// ParseAddress decodes a base58 encoded address.
func ParseAddress(encoded string) (Address, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressSize {
		return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// KeyPair signs requests on behalf of one derived address.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

func (k KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.PrivateKey, message)
}

// subseed mixes the index into the seed: seed XOR blake2b-256(le64(index)).
func subseed(seed Seed, index uint64) [SeedSize]byte {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	digest := blake2b.Sum256(idx[:])

	var out [SeedSize]byte
	for i := range out {
		out[i] = seed[i] ^ digest[i]
	}
	return out
}

// DeriveKeyPair returns the key pair at index. It is a pure function of (seed, index).
func DeriveKeyPair(seed Seed, index uint64) KeyPair {
	sub := subseed(seed, index)
	priv := ed25519.NewKeyFromSeed(sub[:])
	return KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}
}

// DeriveAddress returns the address at index. It is a pure function of (seed, index).
func DeriveAddress(seed Seed, index uint64) Address {
	return AddressFromPublicKey(DeriveKeyPair(seed, index).PublicKey)
}

func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	a[0] = AddressVersionED25519
	digest := blake2b.Sum256(pub)
	copy(a[1:], digest[:])
	return a
}
