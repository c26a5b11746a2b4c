package feed

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
)

// JetStreamConfig is shared by the consumer and the publisher.
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	ConsumerName  string
	ChainID       string
	MaxReconnects int
	ReconnectWait time.Duration

	// consumer side
	AckWait       time.Duration
	MaxAckPending int

	// publisher side
	MaxAge          time.Duration
	MaxMsgs         int64
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "ROULETTE_EVENTS",
		SubjectPrefix:   "roulette.events",
		ConsumerName:    "roulette-client",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		AckWait:         30 * time.Second,
		MaxAckPending:   100,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
	}
}

// Subject is where events of kind are published.
func (c JetStreamConfig) Subject(kind events.Kind) string {
	return fmt.Sprintf("%s.%s", c.SubjectPrefix, kind)
}

func connectJetStream(cfg JetStreamConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}
