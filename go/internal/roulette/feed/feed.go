// Package feed turns remote event streams into dispatcher deliveries.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
)

// ErrMalformed marks messages that can never be delivered, however often
// they are retried.
var ErrMalformed = errors.New("malformed event message")

// Deliverer is the dispatcher as seen by a feed.
type Deliverer interface {
	Deliver(ctx context.Context, ev events.Event) error
	Kinds() []events.Kind
}

// deliverRaw decodes one wire message and hands it to d. Messages for another
// chain are skipped. Handler errors are returned as-is; the caller moves on.
func deliverRaw(ctx context.Context, d Deliverer, chainID string, data []byte) error {
	env, ev, err := events.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if chainID != "" && env.ChainID != "" && env.ChainID != chainID {
		log.Debug().
			Str("event_id", env.EventID).
			Str("chain_id", env.ChainID).
			Msg("skipping event for another chain")
		return nil
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", string(env.EventType)).
		Msg("delivering event")
	return d.Deliver(ctx, ev)
}
