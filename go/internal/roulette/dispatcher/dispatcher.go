package dispatcher

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/rs/zerolog/log"
)

// Handler reacts to one delivered event.
type Handler func(ctx context.Context, ev events.Event) error

// Handle adapts a handler for a single event variant. Delivering any other
// variant to it is a routing bug and yields an error.
func Handle[T events.Event](fn func(ctx context.Context, ev T) error) Handler {
	return func(ctx context.Context, ev events.Event) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("handler for %T received %T", *new(T), ev)
		}
		return fn(ctx, typed)
	}
}

// Dispatcher routes remote events to at most one handler per kind. Deliveries
// are serialized: a handler runs to completion before the next one starts,
// whichever feed the event came from. The dispatcher never buffers, retries
// or deduplicates.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[events.Kind]Handler

	deliverMu sync.Mutex
}

func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[events.Kind]Handler),
	}
}

// Subscribe registers h for kind, replacing any previous handler.
func (d *Dispatcher) Subscribe(kind events.Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[kind]; exists {
		log.Debug().Str("event_type", string(kind)).Msg("replacing event handler")
	}
	d.handlers[kind] = h
}

// Kinds returns the subscribed event kinds in a stable order.
func (d *Dispatcher) Kinds() []events.Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]events.Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Deliver runs the handler subscribed for ev. Events without a handler are
// dropped. A handler error is logged and returned; it does not affect later
// deliveries.
func (d *Dispatcher) Deliver(ctx context.Context, ev events.Event) error {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	// Looked up under deliverMu so a queued delivery sees any replacement.
	d.mu.RLock()
	h, ok := d.handlers[ev.Kind()]
	d.mu.RUnlock()

	if !ok {
		log.Debug().Str("event_type", string(ev.Kind())).Msg("no handler subscribed - ignoring")
		return nil
	}

	if err := h(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(ev.Kind())).
			Msg("event handler failed")
		return fmt.Errorf("handle %s: %w", ev.Kind(), err)
	}
	return nil
}

// Run delivers events from src in order until src is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, src <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-src:
			if !ok {
				return nil
			}
			_ = d.Deliver(ctx, ev)
		}
	}
}
