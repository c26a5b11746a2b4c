package pow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDifficulty = 8

func startedPool(t *testing.T, workers int) *Pool {
	t.Helper()
	p := NewPool(workers)
	p.Start(context.Background())
	t.Cleanup(p.Close)
	return p
}

func TestPool_SolveReturnsSmallestValidNonce(t *testing.T) {
	p := startedPool(t, 2)
	challenge := []byte("faucet-challenge")

	nonce, err := p.Solve(context.Background(), testDifficulty, challenge)
	require.NoError(t, err)
	assert.True(t, Verify(challenge, nonce, testDifficulty))
	for n := uint64(0); n < nonce; n++ {
		require.False(t, Verify(challenge, n, testDifficulty), "nonce %d also valid", n)
	}

	again, err := p.Solve(context.Background(), testDifficulty, challenge)
	require.NoError(t, err)
	assert.Equal(t, nonce, again)
}

func TestPool_ConcurrentSolvesAreIndependent(t *testing.T) {
	p := startedPool(t, 3)

	const n = 8
	nonces := make([]uint64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nonces[i], errs[i] = p.Solve(context.Background(), testDifficulty, []byte(fmt.Sprintf("challenge-%d", i)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, Verify([]byte(fmt.Sprintf("challenge-%d", i)), nonces[i], testDifficulty), "challenge %d", i)
	}
}

func TestPool_MalformedInputPanics(t *testing.T) {
	p := startedPool(t, 1)
	assert.Panics(t, func() { _, _ = p.Solve(context.Background(), testDifficulty, nil) })
	assert.Panics(t, func() { _, _ = p.Solve(context.Background(), 0, []byte("x")) })
	assert.Panics(t, func() { _, _ = p.Solve(context.Background(), MaxDifficulty+1, []byte("x")) })
}

func TestPool_SolveBeforeStartPanics(t *testing.T) {
	p := NewPool(1)
	assert.Panics(t, func() { _, _ = p.Solve(context.Background(), testDifficulty, []byte("x")) })
}

func TestPool_ClosedPoolRejects(t *testing.T) {
	p := NewPool(1)
	p.Start(context.Background())
	p.Close()

	_, err := p.Solve(context.Background(), testDifficulty, []byte("x"))
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestLeadingZeroBits(t *testing.T) {
	var d [32]byte
	assert.Equal(t, MaxDifficulty, leadingZeroBits(d))
	d[1] = 0x10
	assert.Equal(t, 11, leadingZeroBits(d))
}
