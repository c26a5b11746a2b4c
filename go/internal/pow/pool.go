package pow

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// DefaultDifficulty is enough for the devnet faucet.
const DefaultDifficulty = 20

// MaxDifficulty is the digest size in bits.
const MaxDifficulty = blake2b.Size256 * 8

// checkEvery is how many nonces a worker tries between shutdown checks.
const checkEvery = 1 << 16

var ErrPoolClosed = errors.New("proof-of-work pool closed")

type job struct {
	difficulty int
	challenge  []byte
	result     chan uint64
}

// Pool runs nonce searches on a fixed set of worker goroutines, so callers
// only wait on a channel. Each job is searched by one worker from nonce 0
// upward, which makes the returned nonce the smallest valid one.
type Pool struct {
	numWorkers int
	workCh     chan job

	startOnce sync.Once
	closeOnce sync.Once
	started   chan struct{}
	closed    chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPool creates a pool; numWorkers <= 0 means one worker per CPU.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{
		numWorkers: numWorkers,
		workCh:     make(chan job, numWorkers*2),
		started:    make(chan struct{}),
		closed:     make(chan struct{}),
	}
}

// Start launches the workers. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		workerCtx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		for i := 0; i < p.numWorkers; i++ {
			p.wg.Add(1)
			go p.worker(workerCtx, i)
		}
		close(p.started)
		log.Info().Int("workers", p.numWorkers).Msg("proof-of-work pool started")
	})
}

// Close stops the workers and waits for them. Pending Solve calls return
// ErrPoolClosed.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		log.Info().Msg("proof-of-work pool stopped")
	})
}

// Solve returns the smallest nonce whose hash with challenge has at least
// difficulty leading zero bits. Cancelling ctx stops the wait, not the search.
// An empty challenge or a difficulty outside 1..MaxDifficulty is a caller bug
// and panics, as does calling Solve before Start.
func (p *Pool) Solve(ctx context.Context, difficulty int, challenge []byte) (uint64, error) {
	mustValidate(difficulty, challenge)
	select {
	case <-p.started:
	default:
		panic("pow: Solve called before Start")
	}

	j := job{
		difficulty: difficulty,
		challenge:  append([]byte(nil), challenge...),
		result:     make(chan uint64, 1),
	}

	select {
	case p.workCh <- j:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.closed:
		return 0, ErrPoolClosed
	}

	select {
	case nonce := <-j.result:
		return nonce, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.closed:
		return 0, ErrPoolClosed
	}
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", workerID).Msg("pow worker shutting down")
			return
		case j := <-p.workCh:
			nonce, ok := search(ctx, j.difficulty, j.challenge)
			if !ok {
				return
			}
			log.Debug().
				Int("worker_id", workerID).
				Int("difficulty", j.difficulty).
				Uint64("nonce", nonce).
				Msg("proof-of-work solved")
			j.result <- nonce
		}
	}
}

// search only gives up when the pool shuts down.
func search(ctx context.Context, difficulty int, challenge []byte) (uint64, bool) {
	buf := make([]byte, len(challenge)+8)
	copy(buf, challenge)
	tail := buf[len(challenge):]

	for nonce := uint64(0); ; nonce++ {
		if nonce%checkEvery == 0 && ctx.Err() != nil {
			return 0, false
		}
		binary.BigEndian.PutUint64(tail, nonce)
		if leadingZeroBits(blake2b.Sum256(buf)) >= difficulty {
			return nonce, true
		}
	}
}

// Verify reports whether nonce satisfies difficulty for challenge.
func Verify(challenge []byte, nonce uint64, difficulty int) bool {
	mustValidate(difficulty, challenge)
	buf := make([]byte, len(challenge)+8)
	copy(buf, challenge)
	binary.BigEndian.PutUint64(buf[len(challenge):], nonce)
	return leadingZeroBits(blake2b.Sum256(buf)) >= difficulty
}

func leadingZeroBits(digest [blake2b.Size256]byte) int {
	n := 0
	for _, b := range digest {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}

func mustValidate(difficulty int, challenge []byte) {
	if len(challenge) == 0 {
		panic("pow: empty challenge buffer")
	}
	if difficulty < 1 || difficulty > MaxDifficulty {
		panic(fmt.Sprintf("pow: difficulty %d out of range 1..%d", difficulty, MaxDifficulty))
	}
}
