package wallet

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed() Seed {
	var s Seed
	for i := range s {
		s[i] = byte(i + 1)
	}
	return s
}

func TestDeriveAddress_Deterministic(t *testing.T) {
	seed := testSeed()
	for i := uint64(0); i < 16; i++ {
		assert.Equal(t, DeriveAddress(seed, i), DeriveAddress(seed, i), "index %d", i)
	}
	assert.NotEqual(t, DeriveAddress(seed, 0), DeriveAddress(seed, 1))

	other := testSeed()
	other[0] ^= 0xff
	assert.NotEqual(t, DeriveAddress(seed, 0), DeriveAddress(other, 0))
}

func TestDeriveKeyPair_SignsForAddress(t *testing.T) {
	seed := testSeed()
	kp := DeriveKeyPair(seed, 3)

	msg := []byte("place bet")
	sig := kp.Sign(msg)
	assert.True(t, ed25519.Verify(kp.PublicKey, msg, sig))
	assert.Equal(t, DeriveAddress(seed, 3), AddressFromPublicKey(kp.PublicKey))
}

func TestSeedAndAddress_TextRoundTrip(t *testing.T) {
	seed := testSeed()
	parsed, err := ParseSeed(seed.String())
	require.NoError(t, err)
	assert.Equal(t, seed, parsed)

	addr := DeriveAddress(seed, 0)
	text, err := addr.MarshalText()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, addr, decoded)

	_, err = ParseAddress("1111")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ParseSeed("0OIl")
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestLedger_RotationMonotonic(t *testing.T) {
	seed := testSeed()
	l := NewLedger(seed)
	require.Equal(t, uint64(0), l.Index())
	require.Equal(t, DeriveAddress(seed, 0), l.Address())

	const n = 5
	for i := 0; i < n; i++ {
		got := l.Rotate()
		assert.Equal(t, DeriveAddress(seed, uint64(i+1)), got)
	}

	assert.Equal(t, uint64(n), l.Index())
	history := l.History()
	require.Len(t, history, n)
	for i, addr := range history {
		assert.Equal(t, DeriveAddress(seed, uint64(i)), addr, "history[%d]", i)
	}
}

func TestLedger_Owns(t *testing.T) {
	seed := testSeed()
	l := NewLedger(seed)
	a0 := l.Address()
	a1 := l.Rotate()

	assert.True(t, l.Owns(a0))
	assert.True(t, l.Owns(a1))
	assert.False(t, l.Owns(DeriveAddress(seed, 7)))
}

func TestLedger_CurrentIsConsistent(t *testing.T) {
	l := NewLedger(testSeed())
	l.Rotate()
	addr, kp := l.Current()
	assert.Equal(t, addr, AddressFromPublicKey(kp.PublicKey))
}
