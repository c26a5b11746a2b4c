package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/archive"
	"github.com/mcdev12/fairroulette/go/internal/config"
	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/pow"
	"github.com/mcdev12/fairroulette/go/internal/roulette/dispatcher"
	"github.com/mcdev12/fairroulette/go/internal/roulette/feed"
	"github.com/mcdev12/fairroulette/go/internal/roulette/gateway"
	"github.com/mcdev12/fairroulette/go/internal/roulette/session"
	"github.com/mcdev12/fairroulette/go/internal/transport"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

const initRetryWait = 5 * time.Second

// Feed is either the JetStream consumer or the WebSocket reader.
type Feed interface {
	Run(ctx context.Context, d feed.Deliverer) error
}

type Services struct {
	Session    *session.Session
	Gateway    *gateway.Service
	Dispatcher *dispatcher.Dispatcher
	Feed       Feed
	Archive    *archive.Repository

	pool     *pow.Pool
	database *sql.DB
}

func setupServices(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Transport → Session (round machine, funds, faucet) → Gateway → Feed
	s := &Services{
		Dispatcher: dispatcher.New(),
		pool:       pow.NewPool(cfg.PoW.Workers),
	}

	client := transport.NewClient(transport.Config{
		BaseURL: cfg.Transport.BaseURL,
		ChainID: cfg.Session.ChainID,
		H2C:     cfg.Transport.H2C,
		Timeout: cfg.Transport.Timeout,
	})

	var sessionOpts []session.Option
	var gatewayOpts []gateway.Option
	sessionOpts = append(sessionOpts, session.WithResolver(transport.NewBaseClient()))

	if cfg.Archive.Enabled {
		database, repo, err := setupArchive(ctx)
		if err != nil {
			return nil, err
		}
		s.database = database
		s.Archive = repo
		sessionOpts = append(sessionOpts, session.WithArchiver(repo))
		gatewayOpts = append(gatewayOpts, gateway.WithHistory(repo))
	}

	// The gateway renders the session and the session notifies the gateway,
	// so the UI sink is bound once both exist.
	var gw *gateway.Service
	notifier := notify.Fanout{
		notify.LogSink{},
		notify.SinkFunc(func(n notify.Notification) { gw.Notify(n) }),
	}

	s.Session = session.New(session.Config{
		Seed:             cfg.Session.Seed,
		ChainResolverURL: cfg.Session.ChainResolverURL,
		AssetID:          cfg.Session.AssetID,
		FundsInterval:    cfg.Session.FundsInterval,
		PoWDifficulty:    cfg.PoW.Difficulty,
		RoundLength:      cfg.Session.RoundLength,
	}, clock, client, s.pool, s.Dispatcher, notifier, sessionOpts...)

	gw = gateway.NewService(gateway.DefaultConfig(), s.Session, clock, gatewayOpts...)
	s.Gateway = gw

	f, err := setupFeed(cfg, clock, client.ChainID)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Feed = f
	return s, nil
}

// setupFeed builds the event source. chainID is read lazily because the
// session may resolve it during Initialize.
func setupFeed(cfg *config.Config, clock clockwork.Clock, chainID func() string) (Feed, error) {
	switch cfg.Feed.Kind {
	case config.FeedWebSocket:
		wsCfg := feed.DefaultWebSocketConfig()
		wsCfg.URL = cfg.Feed.WebSocket.URL
		return &lazyChainFeed{chainID: chainID, build: func(id string) (Feed, error) {
			wsCfg.ChainID = id
			return feed.NewWebSocketFeed(wsCfg, clock), nil
		}}, nil
	case config.FeedNATS:
		jsCfg := feed.DefaultJetStreamConfig()
		jsCfg.URL = cfg.Feed.NATS.URL
		if cfg.Feed.NATS.StreamName != "" {
			jsCfg.StreamName = cfg.Feed.NATS.StreamName
		}
		if cfg.Feed.NATS.SubjectPrefix != "" {
			jsCfg.SubjectPrefix = cfg.Feed.NATS.SubjectPrefix
		}
		jsCfg.ConsumerName = cfg.Feed.NATS.ConsumerName
		return &lazyChainFeed{chainID: chainID, build: func(id string) (Feed, error) {
			jsCfg.ChainID = id
			return feed.NewNATSFeed(jsCfg)
		}}, nil
	default:
		return nil, fmt.Errorf("unknown feed kind %q", cfg.Feed.Kind)
	}
}

// lazyChainFeed builds the real feed on Run, once the chain id is known.
type lazyChainFeed struct {
	chainID func() string
	build   func(chainID string) (Feed, error)
}

func (l *lazyChainFeed) Run(ctx context.Context, d feed.Deliverer) error {
	f, err := l.build(l.chainID())
	if err != nil {
		return fmt.Errorf("failed to create event feed: %w", err)
	}
	if c, ok := f.(interface{ Close() error }); ok {
		defer c.Close()
	}
	return f.Run(ctx, d)
}

// initializeSession retries Initialize until it succeeds or ctx ends.
func initializeSession(ctx context.Context, s *session.Session, clock clockwork.Clock) error {
	for {
		err := s.Initialize(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, wallet.ErrInvalidSeed) || errors.Is(err, session.ErrInvalidDifficulty) {
			return err
		}
		log.Warn().Err(err).Dur("retry_in", initRetryWait).Msg("session initialization failed")
		select {
		case <-ctx.Done():
			return nil
		case <-clock.After(initRetryWait):
		}
	}
}

func (s *Services) Close() {
	s.pool.Close()
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}
