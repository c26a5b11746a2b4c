package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_SubscribeReplaces(t *testing.T) {
	d := New()
	var first, second int
	d.Subscribe(events.KindRoundStopped, func(context.Context, events.Event) error { first++; return nil })
	d.Subscribe(events.KindRoundStopped, func(context.Context, events.Event) error { second++; return nil })

	require.NoError(t, d.Deliver(context.Background(), events.RoundStopped{}))
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, []events.Kind{events.KindRoundStopped}, d.Kinds())
}

func TestDispatcher_UnsubscribedKindIsDropped(t *testing.T) {
	d := New()
	assert.NoError(t, d.Deliver(context.Background(), events.RoundNumber{Number: 1}))
}

func TestDispatcher_HandlerErrorDoesNotStopLaterEvents(t *testing.T) {
	d := New()
	boom := errors.New("boom")
	var numbers []uint64
	d.Subscribe(events.KindPayout, func(context.Context, events.Event) error { return boom })
	d.Subscribe(events.KindRoundNumber, Handle(func(_ context.Context, ev events.RoundNumber) error {
		numbers = append(numbers, ev.Number)
		return nil
	}))

	err := d.Deliver(context.Background(), events.Payout{})
	assert.ErrorIs(t, err, boom)

	src := make(chan events.Event, 4)
	src <- events.RoundNumber{Number: 1}
	src <- events.Payout{}
	src <- events.RoundNumber{Number: 2}
	close(src)

	require.NoError(t, d.Run(context.Background(), src))
	assert.Equal(t, []uint64{1, 2}, numbers)
}

func TestHandle_WrongVariant(t *testing.T) {
	h := Handle(func(context.Context, events.RoundNumber) error { return nil })
	assert.Error(t, h(context.Background(), events.RoundStopped{}))
}

func TestDispatcher_DeliveriesDoNotInterleave(t *testing.T) {
	d := New()
	var inFlight, maxInFlight atomic.Int32
	d.Subscribe(events.KindBetPlaced, func(context.Context, events.Event) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Deliver(context.Background(), events.BetPlaced{})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestDispatcher_QueuedDeliveryUsesReplacedHandler(t *testing.T) {
	d := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	d.Subscribe(events.KindBetPlaced, func(context.Context, events.Event) error {
		close(entered)
		<-release
		return nil
	})
	var stale, fresh atomic.Int32
	d.Subscribe(events.KindRoundStopped, func(context.Context, events.Event) error { stale.Add(1); return nil })

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = d.Deliver(context.Background(), events.BetPlaced{})
	}()
	<-entered
	go func() {
		defer wg.Done()
		_ = d.Deliver(context.Background(), events.RoundStopped{})
	}()

	// Give the second delivery time to queue behind the first.
	time.Sleep(20 * time.Millisecond)
	d.Subscribe(events.KindRoundStopped, func(context.Context, events.Event) error { fresh.Add(1); return nil })
	close(release)
	wg.Wait()

	assert.Equal(t, int32(0), stale.Load())
	assert.Equal(t, int32(1), fresh.Load())
}
