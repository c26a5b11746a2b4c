package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/fairroulette/go/internal/config"
)

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	services, err := setupServices(ctx, cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	log.Info().
		Str("backend", cfg.Transport.BaseURL).
		Str("feed", cfg.Feed.Kind).
		Str("port", cfg.Server.Port).
		Bool("archive", cfg.Archive.Enabled).
		Msg("starting fairroulette client")

	server := setupServer(cfg, services)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		services.Gateway.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		return serve(gctx, server)
	})
	g.Go(func() error {
		if err := initializeSession(gctx, services.Session, clock); err != nil {
			return err
		}
		// the feed filters on the kinds the session subscribed during init
		return services.Feed.Run(gctx, services.Gateway.Relay(services.Dispatcher))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("fairroulette client stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("fairroulette client shutdown complete")
}
