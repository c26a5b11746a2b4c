package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSFeed consumes roulette events from JetStream, only for the kinds the
// dispatcher has handlers for.
type NATSFeed struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConfig
}

func NewNATSFeed(cfg JetStreamConfig) (*NATSFeed, error) {
	nc, js, err := connectJetStream(cfg)
	if err != nil {
		return nil, err
	}
	return &NATSFeed{nc: nc, js: js, config: cfg}, nil
}

func (f *NATSFeed) filterSubjects(d Deliverer) []string {
	kinds := d.Kinds()
	subjects := make([]string, 0, len(kinds))
	for _, k := range kinds {
		subjects = append(subjects, f.config.Subject(k))
	}
	return subjects
}

// ensureConsumer creates the consumer, or updates it when the subscribed
// kinds changed since it was created.
func (f *NATSFeed) ensureConsumer(ctx context.Context, subjects []string) error {
	stream, err := f.js.Stream(ctx, f.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	cc := jetstream.ConsumerConfig{
		Name:           f.config.ConsumerName,
		Durable:        f.config.ConsumerName,
		Description:    "Roulette client event consumer",
		FilterSubjects: subjects,
		DeliverPolicy:  jetstream.DeliverNewPolicy,
		AckPolicy:      jetstream.AckExplicitPolicy,
		MaxDeliver:     1,
		AckWait:        f.config.AckWait,
		MaxAckPending:  f.config.MaxAckPending,
		ReplayPolicy:   jetstream.ReplayInstantPolicy,
	}
	if f.config.ConsumerName == "" {
		cc.InactiveThreshold = 5 * time.Minute
		consumer, err := stream.CreateConsumer(ctx, cc)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		f.consumer = consumer
		return nil
	}

	consumer, err := stream.Consumer(ctx, f.config.ConsumerName)
	switch {
	case errors.Is(err, jetstream.ErrConsumerNotFound):
		consumer, err = stream.CreateConsumer(ctx, cc)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", f.config.ConsumerName).
			Str("stream", f.config.StreamName).
			Msg("created JetStream consumer")
	case err != nil:
		return fmt.Errorf("get consumer: %w", err)
	default:
		info, err := consumer.Info(ctx)
		if err != nil {
			return fmt.Errorf("get consumer info: %w", err)
		}
		if !slices.Equal(info.Config.FilterSubjects, subjects) {
			consumer, err = stream.UpdateConsumer(ctx, cc)
			if err != nil {
				return fmt.Errorf("update consumer: %w", err)
			}
			log.Info().
				Str("consumer", f.config.ConsumerName).
				Strs("subjects", subjects).
				Msg("updated JetStream consumer filter")
		} else {
			log.Info().
				Str("consumer", f.config.ConsumerName).
				Str("stream", f.config.StreamName).
				Msg("using existing JetStream consumer")
		}
	}

	f.consumer = consumer
	return nil
}

// Run delivers events until ctx is done. Every message is acked once it was
// handed to the dispatcher, whatever the handler returned; undecodable ones
// are terminated.
func (f *NATSFeed) Run(ctx context.Context, d Deliverer) error {
	subjects := f.filterSubjects(d)
	if len(subjects) == 0 {
		return errors.New("no event kinds subscribed")
	}
	if err := f.ensureConsumer(ctx, subjects); err != nil {
		return fmt.Errorf("ensure consumer: %w", err)
	}

	log.Info().
		Str("stream", f.config.StreamName).
		Strs("subjects", subjects).
		Msg("starting JetStream event feed")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := f.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event feed shutting down")
			return nil
		case msg := <-messageCh:
			f.process(ctx, d, msg)
		}
	}
}

func (f *NATSFeed) process(ctx context.Context, d Deliverer, msg jetstream.Msg) {
	err := deliverRaw(ctx, d, f.config.ChainID, msg.Data())
	if errors.Is(err, ErrMalformed) {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		log.Error().Err(ackErr).Msg("failed to ACK message")
	}
}

func (f *NATSFeed) Close() error {
	log.Info().Msg("closing event feed")
	if f.nc != nil {
		f.nc.Close()
	}
	return nil
}
