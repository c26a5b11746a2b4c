package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/pow"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/transport"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

const (
	bettingNumbers   = 8
	challengeSize    = 32
	defaultFaucetAmt = 1000
)

var (
	errUnknownChallenge = errors.New("no pending challenge for address")
	errBadNonce         = errors.New("nonce does not solve the challenge")
	errInsufficient     = errors.New("insufficient funds")
)

// EventPublisher is the JetStream publisher; tests record instead.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) (events.Envelope, error)
}

type SimConfig struct {
	RoundLength  time.Duration
	Pause        time.Duration
	Difficulty   int
	FaucetAmount uint64
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		RoundLength:  60 * time.Second,
		Pause:        10 * time.Second,
		Difficulty:   pow.DefaultDifficulty,
		FaucetAmount: defaultFaucetAmt,
	}
}

// Simulator plays the contract and the faucet for local runs. Rounds start
// after a pause, or early when the first bet arrives.
type Simulator struct {
	config    SimConfig
	clock     clockwork.Clock
	publisher EventPublisher
	draw      func() int64

	mu          sync.Mutex
	active      bool
	number      uint64
	lastWinning *int64
	bets        []events.Bet
	balances    map[wallet.Address]uint64
	challenges  map[wallet.Address][]byte
	startCh     chan struct{}
}

func NewSimulator(config SimConfig, clock clockwork.Clock, publisher EventPublisher) *Simulator {
	rng := mathrand.New(mathrand.NewSource(clock.Now().UnixNano()))
	return &Simulator{
		config:     config,
		clock:      clock,
		publisher:  publisher,
		draw:       func() int64 { return rng.Int63n(bettingNumbers) + 1 },
		balances:   make(map[wallet.Address]uint64),
		challenges: make(map[wallet.Address][]byte),
		startCh:    make(chan struct{}, 1),
	}
}

// Run drives the round cycle until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	log.Info().
		Dur("round_length", s.config.RoundLength).
		Dur("pause", s.config.Pause).
		Msg("round simulator started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.config.Pause):
		case <-s.startCh:
		}

		if err := s.startRound(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.config.RoundLength):
		}

		if err := s.settleRound(ctx); err != nil {
			return err
		}
	}
}

func (s *Simulator) startRound(ctx context.Context) error {
	s.mu.Lock()
	s.active = true
	s.number++
	number := s.number
	s.mu.Unlock()

	log.Info().Uint64("round", number).Msg("round started")
	if err := s.publish(ctx, events.RoundNumber{Number: number}); err != nil {
		return err
	}
	return s.publish(ctx, events.RoundStarted{Timestamp: s.clock.Now()})
}

func (s *Simulator) settleRound(ctx context.Context) error {
	winning := s.draw()

	s.mu.Lock()
	payouts := payoutsFor(s.bets, winning)
	for _, p := range payouts {
		s.balances[p.Better] += p.Amount
	}
	s.lastWinning = &winning
	s.bets = nil
	s.active = false
	s.mu.Unlock()

	log.Info().
		Int64("winning_number", winning).
		Int("winners", len(payouts)).
		Msg("round settled")

	if err := s.publish(ctx, events.WinningNumber{Number: winning}); err != nil {
		return err
	}
	for _, p := range payouts {
		if err := s.publish(ctx, events.Payout{Bet: p}); err != nil {
			return err
		}
	}
	return s.publish(ctx, events.RoundStopped{})
}

// payoutsFor splits the whole pot between the bets on winning, pro rata.
// Integer division leaves any remainder in the pot.
func payoutsFor(bets []events.Bet, winning int64) []events.Bet {
	var pot, winningStake uint64
	for _, b := range bets {
		pot += b.Amount
		if b.Number == winning {
			winningStake += b.Amount
		}
	}
	if winningStake == 0 {
		return nil
	}

	var out []events.Bet
	for _, b := range bets {
		if b.Number != winning {
			continue
		}
		out = append(out, events.Bet{
			Better: b.Better,
			Amount: pot * b.Amount / winningStake,
			Number: b.Number,
		})
	}
	return out
}

func (s *Simulator) publish(ctx context.Context, ev events.Event) error {
	if _, err := s.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind(), err)
	}
	return nil
}

func (s *Simulator) GetRoundStatus(_ context.Context, _ *connect.Request[transport.ChainRequest]) (*connect.Response[transport.GetRoundStatusResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return connect.NewResponse(&transport.GetRoundStatusResponse{Active: s.active}), nil
}

func (s *Simulator) GetRoundNumber(_ context.Context, _ *connect.Request[transport.ChainRequest]) (*connect.Response[transport.GetRoundNumberResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return connect.NewResponse(&transport.GetRoundNumberResponse{Number: s.number}), nil
}

func (s *Simulator) GetLastWinningNumber(_ context.Context, _ *connect.Request[transport.ChainRequest]) (*connect.Response[transport.GetLastWinningNumberResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return connect.NewResponse(&transport.GetLastWinningNumberResponse{Number: s.lastWinning}), nil
}

func (s *Simulator) PlaceBet(ctx context.Context, req *connect.Request[transport.PlaceBetRequest]) (*connect.Response[transport.PlaceBetResponse], error) {
	msg := req.Msg
	if err := transport.VerifyBet(msg); err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	if msg.Number < 1 || msg.Number > bettingNumbers {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("number %d outside 1..%d", msg.Number, bettingNumbers))
	}
	if msg.Amount == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("amount must be positive"))
	}

	s.mu.Lock()
	if s.balances[msg.Address] < msg.Amount {
		s.mu.Unlock()
		return nil, connect.NewError(connect.CodeFailedPrecondition, errInsufficient)
	}
	s.balances[msg.Address] -= msg.Amount
	bet := events.Bet{Better: msg.Address, Amount: msg.Amount, Number: msg.Number}
	s.bets = append(s.bets, bet)
	idle := !s.active
	s.mu.Unlock()

	if idle {
		select {
		case s.startCh <- struct{}{}:
		default:
		}
	}

	if err := s.publish(ctx, events.BetPlaced{Bet: bet}); err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&transport.PlaceBetResponse{TransactionID: uuid.NewString()}), nil
}

func (s *Simulator) GetFaucetChallenge(_ context.Context, req *connect.Request[transport.GetFaucetChallengeRequest]) (*connect.Response[transport.FaucetChallenge], error) {
	buf := make([]byte, challengeSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.mu.Lock()
	s.challenges[req.Msg.Address] = buf
	s.mu.Unlock()

	return connect.NewResponse(&transport.FaucetChallenge{
		Request:   transport.FaucetRequest{Address: req.Msg.Address},
		PoWBuffer: buf,
	}), nil
}

func (s *Simulator) SendFaucetRequest(_ context.Context, req *connect.Request[transport.FaucetRequest]) (*connect.Response[transport.SendFaucetRequestResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.challenges[req.Msg.Address]
	if !ok {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errUnknownChallenge)
	}
	if !pow.Verify(buf, req.Msg.Nonce, s.config.Difficulty) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errBadNonce)
	}
	delete(s.challenges, req.Msg.Address)
	s.balances[req.Msg.Address] += s.config.FaucetAmount

	log.Info().
		Str("address", req.Msg.Address.String()).
		Uint64("amount", s.config.FaucetAmount).
		Msg("faucet funds sent")
	return connect.NewResponse(&transport.SendFaucetRequestResponse{ID: uuid.NewString()}), nil
}

func (s *Simulator) GetBalance(_ context.Context, req *connect.Request[transport.GetBalanceRequest]) (*connect.Response[transport.GetBalanceResponse], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return connect.NewResponse(&transport.GetBalanceResponse{Amount: s.balances[req.Msg.Address]}), nil
}
