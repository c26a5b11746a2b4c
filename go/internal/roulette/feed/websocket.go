package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
)

type WebSocketConfig struct {
	URL              string
	ChainID          string
	ReconnectWait    time.Duration
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
}

func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		ReconnectWait:    2 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

// subscribeMessage is the first frame sent on every connection.
type subscribeMessage struct {
	Type    string        `json:"type"`
	ChainID string        `json:"chainId,omitempty"`
	Kinds   []events.Kind `json:"kinds"`
}

// WebSocketFeed reads envelopes from a node's event socket and reconnects
// after ReconnectWait whenever the connection drops.
type WebSocketFeed struct {
	config WebSocketConfig
	clock  clockwork.Clock
	dialer *websocket.Dialer
}

func NewWebSocketFeed(cfg WebSocketConfig, clock clockwork.Clock) *WebSocketFeed {
	return &WebSocketFeed{
		config: cfg,
		clock:  clock,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}
}

func (f *WebSocketFeed) Run(ctx context.Context, d Deliverer) error {
	for {
		err := f.session(ctx, d)
		if ctx.Err() != nil {
			log.Info().Msg("event socket shutting down")
			return nil
		}
		log.Warn().
			Err(err).
			Str("url", f.config.URL).
			Dur("retry_in", f.config.ReconnectWait).
			Msg("event socket closed")

		select {
		case <-ctx.Done():
			return nil
		case <-f.clock.After(f.config.ReconnectWait):
		}
	}
}

func (f *WebSocketFeed) session(ctx context.Context, d Deliverer) error {
	conn, _, err := f.dialer.DialContext(ctx, f.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial event socket: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if f.config.MaxMessageSize > 0 {
		conn.SetReadLimit(f.config.MaxMessageSize)
	}
	sub := subscribeMessage{Type: "subscribe", ChainID: f.config.ChainID, Kinds: d.Kinds()}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	log.Info().Str("url", f.config.URL).Int("kinds", len(sub.Kinds)).Msg("event socket connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := deliverRaw(ctx, d, f.config.ChainID, data); errors.Is(err, ErrMalformed) {
			log.Error().Err(err).Msg("dropping malformed event")
		}
	}
}
