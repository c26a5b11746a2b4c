// Package session ties the wallet, the round machine and the remote service
// together for one player.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/fairroulette/go/internal/funds"
	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/pow"
	"github.com/mcdev12/fairroulette/go/internal/roulette/dispatcher"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
	"github.com/mcdev12/fairroulette/go/internal/transport"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

// BettingNumbers is the size of the contract's number range, 1 through 8.
const BettingNumbers = 8

const DefaultAssetID = "IOTA"

// Transport is the remote roulette service.
type Transport interface {
	funds.BalanceSource
	ChainID() string
	SetChainID(chainID string)
	GetRoundStatus(ctx context.Context) (bool, error)
	GetRoundNumber(ctx context.Context) (uint64, error)
	GetLastWinningNumber(ctx context.Context) (*int64, error)
	PlaceBet(ctx context.Context, keyPair wallet.KeyPair, address wallet.Address, selection int64, amount uint64) (string, error)
	GetFaucetChallenge(ctx context.Context, address wallet.Address) (transport.FaucetChallenge, error)
	SendFaucetRequest(ctx context.Context, req transport.FaucetRequest) (string, error)
}

// ChainResolver looks up the chain id when none is configured.
type ChainResolver interface {
	ResolveChainID(ctx context.Context, url string) (string, error)
}

// Solver is the proof-of-work gate.
type Solver interface {
	Start(ctx context.Context)
	Solve(ctx context.Context, difficulty int, challenge []byte) (uint64, error)
}

type Config struct {
	// Seed is base58; empty means a fresh random seed.
	Seed             string
	ChainResolverURL string
	AssetID          string
	FundsInterval    time.Duration
	PoWDifficulty    int
	RoundLength      time.Duration
}

func (c Config) withDefaults() Config {
	if c.AssetID == "" {
		c.AssetID = DefaultAssetID
	}
	if c.FundsInterval <= 0 {
		c.FundsInterval = funds.DefaultInterval
	}
	if c.PoWDifficulty <= 0 {
		c.PoWDifficulty = pow.DefaultDifficulty
	}
	if c.RoundLength <= 0 {
		c.RoundLength = round.DefaultRoundLength
	}
	return c
}

type Option func(*Session)

func WithResolver(r ChainResolver) Option {
	return func(s *Session) { s.resolver = r }
}

func WithArchiver(a round.Archiver) Option {
	return func(s *Session) { s.archiver = a }
}

type Session struct {
	config     Config
	clock      clockwork.Clock
	transport  Transport
	resolver   ChainResolver
	solver     Solver
	notifier   notify.Sink
	dispatcher *dispatcher.Dispatcher
	archiver   round.Archiver

	ledger  atomic.Pointer[wallet.Ledger]
	machine *round.Machine
	tracker *funds.Tracker

	initMu      sync.Mutex
	initialized atomic.Bool

	faucetMu        sync.Mutex
	requestedBefore bool // guarded by faucetMu
	requesting      atomic.Bool
}

func New(cfg Config, clock clockwork.Clock, t Transport, solver Solver, d *dispatcher.Dispatcher, notifier notify.Sink, opts ...Option) *Session {
	s := &Session{
		config:     cfg.withDefaults(),
		clock:      clock,
		transport:  t,
		solver:     solver,
		notifier:   notifier,
		dispatcher: d,
	}
	for _, opt := range opts {
		opt(s)
	}

	machineOpts := []round.Option{round.WithRoundLength(s.config.RoundLength)}
	if s.archiver != nil {
		machineOpts = append(machineOpts, round.WithArchiver(s.archiver))
	}
	s.machine = round.NewMachine(clock, s, notifier, machineOpts...)
	s.tracker = funds.NewTracker(clock, t, s, s.config.AssetID)
	return s
}

// Address is the zero address until Initialize ran.
func (s *Session) Address() wallet.Address {
	if l := s.ledger.Load(); l != nil {
		return l.Address()
	}
	return wallet.Address{}
}

func (s *Session) Owns(addr wallet.Address) bool {
	if l := s.ledger.Load(); l != nil {
		return l.Owns(addr)
	}
	return false
}

// Ledger is nil until Initialize ran.
func (s *Session) Ledger() *wallet.Ledger { return s.ledger.Load() }

func (s *Session) Machine() *round.Machine { return s.machine }

func (s *Session) Funds() *funds.Tracker { return s.tracker }

func (s *Session) Snapshot() round.State { return s.machine.Snapshot() }

// RoundLengthLeft reads the session clock.
func (s *Session) RoundLengthLeft() (int, bool) {
	return s.machine.RoundLengthLeft(s.clock.Now())
}

func (s *Session) Balance() (uint64, time.Time) { return s.tracker.Balance() }

func (s *Session) Wealthy() bool { return s.tracker.Wealthy() }

// Requesting reports whether a faucet request is in flight.
func (s *Session) Requesting() bool { return s.requesting.Load() }

func (s *Session) Initialized() bool { return s.initialized.Load() }

// Initialize loads the wallet, subscribes the round handlers, starts the
// balance poller and syncs the round with the remote service. ctx bounds the
// background work started here, so pass the process-lifetime context. A
// failed initialization may be retried.
func (s *Session) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized.Load() {
		return nil
	}

	if s.config.PoWDifficulty > pow.MaxDifficulty {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidDifficulty, s.config.PoWDifficulty, pow.MaxDifficulty)
	}

	s.machine.Log(round.LogTagSite, "Initializing wallet")

	seed, err := s.loadSeed()
	if err != nil {
		return err
	}

	if s.transport.ChainID() == "" && s.config.ChainResolverURL != "" && s.resolver != nil {
		chainID, err := s.resolver.ResolveChainID(ctx, s.config.ChainResolverURL)
		if err != nil {
			s.fail("", err)
		} else {
			s.transport.SetChainID(chainID)
			log.Info().Str("chain_id", chainID).Msg("resolved chain id")
		}
	}

	if s.ledger.Load() == nil {
		ledger := wallet.NewLedger(seed)
		ledger.SetIndex(0)
		s.ledger.Store(ledger)
	}

	s.solver.Start(ctx)
	s.subscribe()
	s.tracker.Refresh(ctx)
	s.tracker.Start(ctx, s.config.FundsInterval)

	status, err := s.fetchStatus(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	s.machine.Sync(status)

	s.machine.Log(round.LogTagSite, "Demo loaded")
	s.initialized.Store(true)
	log.Info().
		Str("address", s.Address().String()).
		Str("chain_id", s.transport.ChainID()).
		Msg("session initialized")
	return nil
}

func (s *Session) loadSeed() (wallet.Seed, error) {
	if s.config.Seed != "" {
		seed, err := wallet.ParseSeed(s.config.Seed)
		if err != nil {
			return wallet.Seed{}, fmt.Errorf("load seed: %w", err)
		}
		return seed, nil
	}
	seed, err := wallet.GenerateSeed()
	if err != nil {
		return wallet.Seed{}, fmt.Errorf("generate seed: %w", err)
	}
	return seed, nil
}

func (s *Session) subscribe() {
	d, m := s.dispatcher, s.machine
	d.Subscribe(events.KindRoundStarted, dispatcher.Handle(m.HandleRoundStarted))
	d.Subscribe(events.KindRoundStopped, dispatcher.Handle(m.HandleRoundStopped))
	d.Subscribe(events.KindRoundNumber, dispatcher.Handle(m.HandleRoundNumber))
	d.Subscribe(events.KindWinningNumber, dispatcher.Handle(m.HandleWinningNumber))
	d.Subscribe(events.KindBetPlaced, dispatcher.Handle(m.HandleBetPlaced))
	d.Subscribe(events.KindPayout, dispatcher.Handle(m.HandlePayout))
}

func (s *Session) fetchStatus(ctx context.Context) (round.RemoteStatus, error) {
	var status round.RemoteStatus
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		active, err := s.transport.GetRoundStatus(gctx)
		status.Active = active
		return err
	})
	g.Go(func() error {
		number, err := s.transport.GetRoundNumber(gctx)
		status.Number = number
		return err
	})
	g.Go(func() error {
		winning, err := s.transport.GetLastWinningNumber(gctx)
		status.WinningNumber = winning
		return err
	})
	if err := g.Wait(); err != nil {
		return round.RemoteStatus{}, err
	}
	return status, nil
}

// fail surfaces a user-facing error and records it in the round log.
func (s *Session) fail(title string, err error) {
	s.notifier.Notify(notify.Notification{
		Severity: notify.SeverityError,
		Title:    title,
		Message:  err.Error(),
		Timeout:  notify.DefaultTimeout,
	})
	s.machine.Log(round.LogTagError, err.Error())
}
