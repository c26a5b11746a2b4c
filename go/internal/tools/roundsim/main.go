// Command roundsim serves the roulette RPC service and publishes a synthetic
// round cycle to JetStream, so the client can run without a chain.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/fairroulette/go/internal/roulette/feed"
	"github.com/mcdev12/fairroulette/go/internal/roulette/gateway"
	"github.com/mcdev12/fairroulette/go/internal/transport"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	port := getEnv("ROUNDSIM_PORT", "8080")
	chainID := getEnv("CHAIN_ID", "roundsim")

	jsCfg := feed.DefaultJetStreamConfig()
	jsCfg.URL = getEnv("NATS_URL", jsCfg.URL)
	jsCfg.ChainID = chainID

	simCfg := DefaultSimConfig()
	simCfg.RoundLength = getEnvAsDuration("ROUND_LENGTH", simCfg.RoundLength)
	simCfg.Pause = getEnvAsDuration("ROUND_PAUSE", simCfg.Pause)
	simCfg.Difficulty = getEnvAsInt("POW_DIFFICULTY", simCfg.Difficulty)

	clock := clockwork.NewRealClock()

	publisher, err := feed.NewPublisher(jsCfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	sim := NewSimulator(simCfg, clock, publisher)

	mux := http.NewServeMux()
	path, handler := transport.NewHandler(sim)
	mux.Handle(path, handler)
	mux.HandleFunc("/chain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"chainId": chainID}); err != nil {
			log.Error().Err(err).Msg("failed to write chain id")
		}
	})
	server := gateway.NewServer(fmt.Sprintf(":%s", port), mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("chain_id", chainID).
		Str("nats_url", jsCfg.URL).
		Str("port", port).
		Msg("starting round simulator")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx) })
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("round simulator failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
