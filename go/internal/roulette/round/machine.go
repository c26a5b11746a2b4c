package round

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/roulette/events"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
	"github.com/rs/zerolog/log"
)

// DefaultRoundLength matches the remote contract's play period.
const DefaultRoundLength = 60 * time.Second

const (
	msgBetDeferred = "The current round just ended. Your bet will be placed in the next round."
	msgRoundLost   = "Sorry, you lost this round. Try again!"
)

// Archiver records settled rounds. Failures are logged and never stop the machine.
type Archiver interface {
	ArchiveRound(ctx context.Context, summary Summary) error
}

// Option configures a Machine.
type Option func(*Machine)

func WithRoundLength(d time.Duration) Option {
	return func(m *Machine) { m.roundLength = d }
}

func WithArchiver(a Archiver) Option {
	return func(m *Machine) { m.archiver = a }
}

// Machine owns the current round. Remote events reach it only through the
// Handle* methods, which the dispatcher invokes one at a time; the remaining
// mutators cover local staging and logging.
type Machine struct {
	mu    sync.RWMutex
	state State

	clock       clockwork.Clock
	identity    wallet.Identity
	notifier    notify.Sink
	archiver    Archiver
	roundLength time.Duration
}

// NewMachine creates a machine in the Idle phase.
func NewMachine(clock clockwork.Clock, identity wallet.Identity, notifier notify.Sink, opts ...Option) *Machine {
	m := &Machine{
		clock:       clock,
		identity:    identity,
		notifier:    notifier,
		roundLength: DefaultRoundLength,
	}
	m.state.Phase = PhaseIdle
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

func (m *Machine) RoundLength() time.Duration {
	return m.roundLength
}

// Log appends a line to the round log.
func (m *Machine) Log(tag LogTag, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logLocked(tag, description)
}

func (m *Machine) logLocked(tag LogTag, description string) {
	m.state.Round.Logs = append(m.state.Round.Logs, LogEntry{
		Tag:         tag,
		Description: description,
		Timestamp:   m.clock.Now(),
	})
	log.Debug().Str("tag", string(tag)).Msg(description)
}

// Reset returns the round to a fresh Idle value.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// resetLocked keeps the remote round number, the last winning number and the
// in-flight placing flag; a deferred bet is confirmed by a later betPlaced.
func (m *Machine) resetLocked() {
	m.state.Round = Round{
		Number:        m.state.Round.Number,
		WinningNumber: m.state.Round.WinningNumber,
	}
	m.state.Phase = PhaseIdle
	m.state.ShowBettingSystem = false
	m.state.Winner = false
}

// Sync applies the status fetched from the remote service at start-up.
func (m *Machine) Sync(status RemoteStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Round.Active = status.Active
	m.state.Round.Number = status.Number
	if status.WinningNumber != nil {
		n := *status.WinningNumber
		m.state.Round.WinningNumber = &n
	}
	if status.Active && m.state.Phase == PhaseIdle {
		m.state.Phase = PhaseActive
	}
}

// StageBet records the locally chosen bet and shows the betting system.
func (m *Machine) StageBet(selection int64, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Round.BetSelection = selection
	m.state.Round.BetAmount = amount
	m.state.ShowBettingSystem = true
}

// BeginPlacing marks a bet as in flight and hides the previous round's result.
func (m *Machine) BeginPlacing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.PlacingBet = true
	m.state.ShowBettingSystem = false
	m.state.ShowWinningNumber = false
}

// CancelPlacing clears the in-flight flag after a failed submission.
func (m *Machine) CancelPlacing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.PlacingBet = false
}

// RoundLengthLeft returns the whole seconds left in the round at now. ok is
// false when no round has started.
func (m *Machine) RoundLengthLeft(now time.Time) (left int, ok bool) {
	m.mu.RLock()
	startedAt := m.state.Round.StartedAt
	m.mu.RUnlock()

	if startedAt.IsZero() {
		return 0, false
	}

	elapsed := math.Round(now.Sub(startedAt).Seconds())
	remaining := int(math.Round(m.roundLength.Seconds() - elapsed))
	if remaining <= 0 {
		return 0, true
	}
	return remaining, true
}

// HandleRoundStarted ignores the payload timestamp and stamps the round with
// the local clock.
func (m *Machine) HandleRoundStarted(_ context.Context, _ events.RoundStarted) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.ReceivedRoundStarted = true
	m.state.ShowWinningNumber = false
	m.state.Phase = PhaseActive
	m.state.Round.Active = true
	m.state.Round.StartedAt = m.clock.Now()
	m.state.Round.Logs = nil
	m.logLocked(LogTagRound, "Started")
	return nil
}

func (m *Machine) HandleRoundNumber(_ context.Context, ev events.RoundNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Round.Number = ev.Number
	m.logLocked(LogTagRound, fmt.Sprintf("Started. Round number: %d", ev.Number))
	return nil
}

func (m *Machine) HandleWinningNumber(_ context.Context, ev events.WinningNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := ev.Number
	m.state.Round.WinningNumber = &n
	m.state.ShowWinningNumber = true
	if m.state.Round.Active {
		m.state.Phase = PhaseSettling
	}
	m.logLocked(LogTagSmartContract, "The winning number was decided")
	m.logLocked(LogTagSmartContract, fmt.Sprintf("%d is the winning number!", ev.Number))
	return nil
}

func (m *Machine) HandleBetPlaced(_ context.Context, ev events.BetPlaced) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	local := ev.Better == m.identity.Address()
	if local {
		m.state.PlacingBet = false
	}

	if !m.state.Round.Active {
		log.Warn().
			Str("better", ev.Better.String()).
			Uint64("amount", ev.Amount).
			Bool("local", local).
			Msg("betPlaced received outside an active round")
		return nil
	}

	if local {
		m.state.Round.BetPlaced = true
		m.state.Round.BetAmount = 0
		m.logLocked(LogTagSmartContract, "Your number and betting amounts are saved")
	}
	m.state.Round.Players = append(m.state.Round.Players, Player{
		Address: ev.Better,
		Bet:     ev.Amount,
		Number:  ev.Number,
	})
	return nil
}

// HandlePayout counts a winner. Payouts to rotated-away addresses still count
// as local wins.
func (m *Machine) HandlePayout(_ context.Context, ev events.Payout) error {
	m.mu.Lock()
	m.state.Round.Winners++
	if m.state.Round.Active {
		m.state.Phase = PhaseSettling
	}
	local := m.identity.Owns(ev.Better)
	if local {
		m.state.Winner = true
	}
	m.logLocked(LogTagSmartContract, fmt.Sprintf("Payout for %s with %di.", ev.Better, ev.Amount))
	m.mu.Unlock()

	if local {
		m.notifier.Notify(notify.Notification{
			Severity: notify.SeverityWin,
			Message:  fmt.Sprintf("Congratulations! You just won the round. You received %d iotas.", ev.Amount),
			Timeout:  notify.DefaultTimeout,
		})
	}
	return nil
}

func (m *Machine) HandleRoundStopped(ctx context.Context, _ events.RoundStopped) error {
	m.mu.Lock()
	var note *notify.Notification
	switch {
	case m.state.PlacingBet || m.state.ShowBettingSystem:
		note = &notify.Notification{Severity: notify.SeverityInfo, Message: msgBetDeferred, Timeout: notify.DefaultTimeout}
	case m.state.Round.BetPlaced && !m.state.Winner:
		note = &notify.Notification{Severity: notify.SeverityInfo, Message: msgRoundLost, Timeout: notify.DefaultTimeout}
	}

	if winners := m.state.Round.Winners; winners > 0 {
		if winners == 1 {
			m.logLocked(LogTagSmartContract, "Distributed the iotas to 1 winner.")
		} else {
			m.logLocked(LogTagSmartContract, fmt.Sprintf("Distributed the iotas to %d winners.", winners))
		}
	}

	summary := m.summaryLocked()
	m.resetLocked()
	m.logLocked(LogTagRound, "Ended")
	m.logLocked(LogTagSmartContract, "Round Ended. Current bets cleared.")
	m.mu.Unlock()

	if note != nil {
		m.notifier.Notify(*note)
	}

	if m.archiver != nil {
		if err := m.archiver.ArchiveRound(ctx, summary); err != nil {
			log.Warn().Err(err).Uint64("round", summary.Number).Msg("failed to archive round")
		}
	}
	return nil
}

func (m *Machine) summaryLocked() Summary {
	s := Summary{
		Number:         m.state.Round.Number,
		StartedAt:      m.state.Round.StartedAt,
		StoppedAt:      m.clock.Now(),
		Winners:        m.state.Round.Winners,
		Players:        slices.Clone(m.state.Round.Players),
		LocalBetPlaced: m.state.Round.BetPlaced,
		LocalWinner:    m.state.Winner,
	}
	if m.state.Round.WinningNumber != nil {
		n := *m.state.Round.WinningNumber
		s.WinningNumber = &n
	}
	return s
}
