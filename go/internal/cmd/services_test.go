package main

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/fairroulette/go/internal/config"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/roulette/feed"
)

type nopDeliverer struct{}

func (nopDeliverer) Deliver(context.Context, events.Event) error { return nil }
func (nopDeliverer) Kinds() []events.Kind                        { return nil }

type stubFeed struct {
	closed bool
}

func (f *stubFeed) Run(context.Context, feed.Deliverer) error { return nil }
func (f *stubFeed) Close() error {
	f.closed = true
	return nil
}

func TestSetupFeed_UnknownKind(t *testing.T) {
	cfg := config.Default()
	cfg.Feed.Kind = "carrier-pigeon"

	_, err := setupFeed(cfg, clockwork.NewFakeClock(), func() string { return "" })
	assert.ErrorContains(t, err, "unknown feed kind")
}

func TestSetupFeed_Kinds(t *testing.T) {
	for _, kind := range []string{config.FeedNATS, config.FeedWebSocket} {
		cfg := config.Default()
		cfg.Feed.Kind = kind
		cfg.Feed.WebSocket.URL = "ws://localhost:9090/events"

		f, err := setupFeed(cfg, clockwork.NewFakeClock(), func() string { return "chain-1" })
		require.NoError(t, err, kind)
		assert.IsType(t, &lazyChainFeed{}, f, kind)
	}
}

func TestLazyChainFeed_BuildsWithCurrentChainID(t *testing.T) {
	chainID := "before-init"
	built := &stubFeed{}
	var gotChain string

	l := &lazyChainFeed{
		chainID: func() string { return chainID },
		build: func(id string) (Feed, error) {
			gotChain = id
			return built, nil
		},
	}

	chainID = "resolved"
	require.NoError(t, l.Run(context.Background(), nopDeliverer{}))
	assert.Equal(t, "resolved", gotChain)
	assert.True(t, built.closed)
}

func TestLazyChainFeed_BuildError(t *testing.T) {
	l := &lazyChainFeed{
		chainID: func() string { return "" },
		build: func(string) (Feed, error) {
			return nil, errors.New("nats unreachable")
		},
	}
	assert.ErrorContains(t, l.Run(context.Background(), nopDeliverer{}), "nats unreachable")
}
