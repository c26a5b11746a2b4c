package round

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Message)
	}
	return out
}

type archiveFunc func(ctx context.Context, s Summary) error

func (f archiveFunc) ArchiveRound(ctx context.Context, s Summary) error { return f(ctx, s) }

type fixture struct {
	clock   *clockwork.FakeClock
	ledger  *wallet.Ledger
	notes   *recorder
	machine *Machine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	var seed wallet.Seed
	seed[0] = 42
	f := &fixture{
		clock:  clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)),
		ledger: wallet.NewLedger(seed),
		notes:  &recorder{},
	}
	f.machine = NewMachine(f.clock, f.ledger, f.notes, opts...)
	return f
}

func (f *fixture) foreign(index uint64) wallet.Address {
	var other wallet.Seed
	other[0] = 7
	return wallet.DeriveAddress(other, index)
}

func TestMachine_RoundStartedUsesLocalClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.machine.Log(LogTagSite, "before")

	remote := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{Timestamp: remote}))

	s := f.machine.Snapshot()
	assert.True(t, s.Round.Active)
	assert.Equal(t, PhaseActive, s.Phase)
	assert.Equal(t, f.clock.Now(), s.Round.StartedAt)
	assert.False(t, s.ShowWinningNumber)
	assert.True(t, s.ReceivedRoundStarted)
	require.Len(t, s.Round.Logs, 1)
	assert.Equal(t, "Started", s.Round.Logs[0].Description)
}

func TestMachine_LocalBetPlaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a0 := f.ledger.Address()

	f.machine.StageBet(3, 10)
	f.machine.BeginPlacing()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: a0, Amount: 10, Number: 3}}))

	s := f.machine.Snapshot()
	assert.True(t, s.Round.BetPlaced)
	assert.Zero(t, s.Round.BetAmount)
	assert.False(t, s.PlacingBet)
	assert.Equal(t, []Player{{Address: a0, Bet: 10, Number: 3}}, s.Round.Players)
}

func TestMachine_ForeignBetOnlyAppendsPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.foreign(0)

	f.machine.StageBet(1, 25)
	f.machine.BeginPlacing()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: other, Amount: 5, Number: 2}}))

	s := f.machine.Snapshot()
	assert.False(t, s.Round.BetPlaced)
	assert.Equal(t, uint64(25), s.Round.BetAmount)
	assert.True(t, s.PlacingBet)
	assert.Equal(t, []Player{{Address: other, Bet: 5, Number: 2}}, s.Round.Players)
}

func TestMachine_BetPlacedOutsideActiveRound(t *testing.T) {
	f := newFixture(t)
	f.machine.BeginPlacing()

	err := f.machine.HandleBetPlaced(context.Background(), events.BetPlaced{Bet: events.Bet{Better: f.ledger.Address(), Amount: 1}})
	require.NoError(t, err)

	s := f.machine.Snapshot()
	assert.False(t, s.PlacingBet)
	assert.False(t, s.Round.BetPlaced)
	assert.Empty(t, s.Round.Players)
}

func TestMachine_PayoutToHistoryAddressIsLocalWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.ledger.Address()
	f.ledger.Rotate()

	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandlePayout(ctx, events.Payout{Bet: events.Bet{Better: old, Amount: 50}}))

	s := f.machine.Snapshot()
	assert.Equal(t, 1, s.Round.Winners)
	assert.True(t, s.Winner)
	require.Len(t, f.notes.notes, 1)
	assert.Equal(t, notify.SeverityWin, f.notes.notes[0].Severity)
	assert.Contains(t, f.notes.notes[0].Message, "50 iotas")
}

func TestMachine_ForeignPayoutDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.machine.HandlePayout(context.Background(), events.Payout{Bet: events.Bet{Better: f.foreign(1), Amount: 9}}))

	assert.Equal(t, 1, f.machine.Snapshot().Round.Winners)
	assert.Empty(t, f.notes.messages())
}

func TestMachine_WinningNumberMovesToSettling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleWinningNumber(ctx, events.WinningNumber{Number: 6}))

	s := f.machine.Snapshot()
	require.NotNil(t, s.Round.WinningNumber)
	assert.Equal(t, int64(6), *s.Round.WinningNumber)
	assert.True(t, s.ShowWinningNumber)
	assert.Equal(t, PhaseSettling, s.Phase)
}

func TestMachine_RoundStoppedWhilePlacingDefers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	f.machine.StageBet(2, 10)
	f.machine.BeginPlacing()

	require.NoError(t, f.machine.HandleRoundStopped(ctx, events.RoundStopped{}))

	assert.Equal(t, []string{msgBetDeferred}, f.notes.messages())
	s := f.machine.Snapshot()
	assert.False(t, s.Round.Active)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.True(t, s.PlacingBet, "deferred bet stays in flight")
}

func TestMachine_RoundStoppedAfterLosingBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a0 := f.ledger.Address()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: a0, Amount: 10, Number: 3}}))
	require.NoError(t, f.machine.HandlePayout(ctx, events.Payout{Bet: events.Bet{Better: f.foreign(0), Amount: 20}}))

	require.NoError(t, f.machine.HandleRoundStopped(ctx, events.RoundStopped{}))

	assert.Equal(t, []string{msgRoundLost}, f.notes.messages())
	logs := f.machine.Snapshot().Round.Logs
	require.Len(t, logs, 2)
	assert.Equal(t, "Ended", logs[0].Description)
}

func TestMachine_RoundStoppedAfterWinningBet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a0 := f.ledger.Address()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: a0, Amount: 10, Number: 3}}))
	require.NoError(t, f.machine.HandlePayout(ctx, events.Payout{Bet: events.Bet{Better: a0, Amount: 80}}))
	require.NoError(t, f.machine.HandleRoundStopped(ctx, events.RoundStopped{}))

	msgs := f.notes.messages()
	require.Len(t, msgs, 1)
	assert.NotEqual(t, msgRoundLost, msgs[0])
}

func TestMachine_RoundStoppedArchivesSummary(t *testing.T) {
	var got Summary
	f := newFixture(t, WithArchiver(archiveFunc(func(_ context.Context, s Summary) error {
		got = s
		return errors.New("database unavailable")
	})))
	ctx := context.Background()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleRoundNumber(ctx, events.RoundNumber{Number: 12}))
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: f.foreign(0), Amount: 4, Number: 1}}))
	require.NoError(t, f.machine.HandleWinningNumber(ctx, events.WinningNumber{Number: 1}))
	require.NoError(t, f.machine.HandlePayout(ctx, events.Payout{Bet: events.Bet{Better: f.foreign(0), Amount: 8}}))

	require.NoError(t, f.machine.HandleRoundStopped(ctx, events.RoundStopped{}))

	assert.Equal(t, uint64(12), got.Number)
	assert.Equal(t, 1, got.Winners)
	require.NotNil(t, got.WinningNumber)
	assert.Equal(t, int64(1), *got.WinningNumber)
	assert.Len(t, got.Players, 1)
}

func TestMachine_ResetClearsRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a0 := f.ledger.Address()
	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	require.NoError(t, f.machine.HandleRoundNumber(ctx, events.RoundNumber{Number: 4}))
	f.machine.StageBet(1, 30)
	require.NoError(t, f.machine.HandleBetPlaced(ctx, events.BetPlaced{Bet: events.Bet{Better: a0, Amount: 30, Number: 1}}))
	require.NoError(t, f.machine.HandlePayout(ctx, events.Payout{Bet: events.Bet{Better: a0, Amount: 60}}))

	f.machine.Reset()

	s := f.machine.Snapshot()
	assert.False(t, s.Round.Active)
	assert.Empty(t, s.Round.Players)
	assert.Empty(t, s.Round.Logs)
	assert.False(t, s.Round.BetPlaced)
	assert.Zero(t, s.Round.BetAmount)
	assert.Zero(t, s.Round.Winners)
	assert.False(t, s.Winner)
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, uint64(4), s.Round.Number)
}

func TestMachine_RoundLengthLeft(t *testing.T) {
	f := newFixture(t, WithRoundLength(60*time.Second))
	ctx := context.Background()

	_, ok := f.machine.RoundLengthLeft(f.clock.Now())
	assert.False(t, ok, "no round started")

	require.NoError(t, f.machine.HandleRoundStarted(ctx, events.RoundStarted{}))
	start := f.clock.Now()

	prev := 61
	for s := 0; s <= 90; s += 3 {
		left, ok := f.machine.RoundLengthLeft(start.Add(time.Duration(s) * time.Second))
		require.True(t, ok)
		assert.LessOrEqual(t, left, prev)
		prev = left
	}

	left, _ := f.machine.RoundLengthLeft(start.Add(20 * time.Second))
	assert.Equal(t, 40, left)
	left, _ = f.machine.RoundLengthLeft(start.Add(60 * time.Second))
	assert.Equal(t, 0, left)
	left, _ = f.machine.RoundLengthLeft(start.Add(5 * time.Minute))
	assert.Equal(t, 0, left)

	require.NoError(t, f.machine.HandleRoundStopped(ctx, events.RoundStopped{}))
	_, ok = f.machine.RoundLengthLeft(f.clock.Now())
	assert.False(t, ok, "reset clears the start")
}

func TestMachine_SyncActivatesRound(t *testing.T) {
	f := newFixture(t)
	wn := int64(3)
	f.machine.Sync(RemoteStatus{Active: true, Number: 9, WinningNumber: &wn})

	s := f.machine.Snapshot()
	assert.True(t, s.Round.Active)
	assert.Equal(t, PhaseActive, s.Phase)
	assert.Equal(t, uint64(9), s.Round.Number)
	require.NotNil(t, s.Round.WinningNumber)
	assert.Equal(t, int64(3), *s.Round.WinningNumber)
}
