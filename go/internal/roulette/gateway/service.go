// Package gateway serves the local UI: round and wallet snapshots over HTTP,
// and notifications plus round updates over a WebSocket.
package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

// Player is the session the gateway renders and drives.
type Player interface {
	Snapshot() round.State
	RoundLengthLeft() (int, bool)
	Initialized() bool
	Ledger() *wallet.Ledger
	Balance() (uint64, time.Time)
	Wealthy() bool
	Requesting() bool
	StageBet(selection int64, amount uint64) error
	PlaceBet(ctx context.Context) error
	ResetBetting()
	RequestFunds(ctx context.Context) error
}

// Deliverer matches the dispatcher, so the gateway can sit in front of it.
type Deliverer interface {
	Deliver(ctx context.Context, ev events.Event) error
	Kinds() []events.Kind
}

// History lists archived rounds, newest first.
type History interface {
	RecentRounds(ctx context.Context, limit int) ([]round.Summary, error)
}

// Option configures a Service.
type Option func(*Service)

// WithHistory enables GET /api/rounds/history.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

type Config struct {
	Connection ConnectionConfig
	// FaucetTimeout bounds a faucet request started from the UI.
	FaucetTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Connection:    DefaultConnectionConfig(),
		FaucetTimeout: 2 * time.Minute,
	}
}

type Service struct {
	connectionManager *ConnectionManager
	player            Player
	history           History
	clock             clockwork.Clock
	config            Config
}

func NewService(config Config, player Player, clock clockwork.Clock, opts ...Option) *Service {
	s := &Service{
		connectionManager: NewConnectionManager(config.Connection, clock),
		player:            player,
		clock:             clock,
		config:            config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the broadcast loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.connectionManager.Start(ctx)
}

// Notify implements notify.Sink by pushing the notification to every UI.
func (s *Service) Notify(n notify.Notification) {
	s.connectionManager.Broadcast(&Message{
		Type:         MessageNotification,
		Timestamp:    s.clock.Now(),
		Notification: &n,
	})
}

// BroadcastRound pushes the current round to every UI.
func (s *Service) BroadcastRound() {
	s.connectionManager.Broadcast(&Message{
		Type:      MessageRound,
		Timestamp: s.clock.Now(),
		Round:     s.roundView(),
	})
}

func (s *Service) roundView() *RoundView {
	left, started := s.player.RoundLengthLeft()
	return newRoundView(s.player.Snapshot(), left, started)
}

func (s *Service) walletView() WalletView {
	balance, observedAt := s.player.Balance()
	v := WalletView{
		Balance:    balance,
		Wealthy:    s.player.Wealthy(),
		Requesting: s.player.Requesting(),
		History:    []wallet.Address{},
	}
	if !observedAt.IsZero() {
		v.ObservedAt = &observedAt
	}
	if l := s.player.Ledger(); l != nil {
		v.Address = l.Address()
		v.Index = l.Index()
		v.History = l.History()
	}
	return v
}

func (s *Service) Stats() map[string]interface{} {
	return map[string]interface{}{
		"total_connections": s.connectionManager.ConnectionCount(),
	}
}

// Relay wraps next so that every delivered event is followed by a round
// broadcast.
func (s *Service) Relay(next Deliverer) Deliverer {
	return &relay{next: next, service: s}
}

type relay struct {
	next    Deliverer
	service *Service
}

func (r *relay) Deliver(ctx context.Context, ev events.Event) error {
	err := r.next.Deliver(ctx, ev)
	r.service.BroadcastRound()
	return err
}

func (r *relay) Kinds() []events.Kind {
	return r.next.Kinds()
}

func (s *Service) requestFundsAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.FaucetTimeout)
		defer cancel()
		if err := s.player.RequestFunds(ctx); err != nil {
			log.Error().Err(err).Msg("faucet request failed")
		}
		s.BroadcastRound()
	}()
}
