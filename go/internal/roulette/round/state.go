package round

import (
	"slices"
	"time"

	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

// Phase is the lifecycle position of the current round.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseSettling Phase = "settling"
)

// LogTag groups round log lines by origin.
type LogTag string

const (
	LogTagSite          LogTag = "Site"
	LogTagRound         LogTag = "Round"
	LogTagFunds         LogTag = "Funds"
	LogTagSmartContract LogTag = "Smart Contract"
	LogTagError         LogTag = "Error"
)

// Player is one bet observed during the round, local or foreign.
type Player struct {
	Address wallet.Address `json:"address"`
	Bet     uint64         `json:"bet"`
	Number  int64          `json:"number"`
}

// LogEntry is one line of the round's activity log.
type LogEntry struct {
	Tag         LogTag    `json:"tag"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Round is the game state for one betting cycle.
type Round struct {
	Number        uint64     `json:"number"`
	Active        bool       `json:"active"`
	StartedAt     time.Time  `json:"started_at"`
	BetSelection  int64      `json:"bet_selection"`
	BetAmount     uint64     `json:"bet_amount"`
	BetPlaced     bool       `json:"bet_placed"`
	Players       []Player   `json:"players"`
	WinningNumber *int64     `json:"winning_number,omitempty"`
	Winners       int        `json:"winners"`
	Logs          []LogEntry `json:"logs"`
}

// State is the round plus the presentation flags its transitions read and write.
type State struct {
	Round                Round `json:"round"`
	Phase                Phase `json:"phase"`
	PlacingBet           bool  `json:"placing_bet"`
	ShowBettingSystem    bool  `json:"show_betting_system"`
	ShowWinningNumber    bool  `json:"show_winning_number"`
	Winner               bool  `json:"winner"`
	ReceivedRoundStarted bool  `json:"received_round_started"`
}

func (s State) clone() State {
	out := s
	out.Round.Players = slices.Clone(s.Round.Players)
	out.Round.Logs = slices.Clone(s.Round.Logs)
	if s.Round.WinningNumber != nil {
		n := *s.Round.WinningNumber
		out.Round.WinningNumber = &n
	}
	return out
}

// Summary describes a settled round for archiving.
type Summary struct {
	Number         uint64    `json:"number"`
	WinningNumber  *int64    `json:"winning_number,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	StoppedAt      time.Time `json:"stopped_at"`
	Winners        int       `json:"winners"`
	Players        []Player  `json:"players"`
	LocalBetPlaced bool      `json:"local_bet_placed"`
	LocalWinner    bool      `json:"local_winner"`
}

// RemoteStatus is the authoritative round status fetched at start-up.
type RemoteStatus struct {
	Active        bool
	Number        uint64
	WinningNumber *int64
}
