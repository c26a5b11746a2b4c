package events

import (
	"time"

	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

// Kind names a remote round event. The values are the event names the remote
// service publishes.
type Kind string

const (
	KindRoundStarted  Kind = "roundStarted"
	KindRoundStopped  Kind = "roundStopped"
	KindRoundNumber   Kind = "roundNumber"
	KindWinningNumber Kind = "winningNumber"
	KindBetPlaced     Kind = "betPlaced"
	KindPayout        Kind = "payout"
)

// AllKinds returns every event kind in a stable order.
func AllKinds() []Kind {
	return []Kind{
		KindRoundStarted,
		KindRoundStopped,
		KindRoundNumber,
		KindWinningNumber,
		KindBetPlaced,
		KindPayout,
	}
}

// Event is one variant of the remote round event sum type.
type Event interface {
	Kind() Kind
}

// RoundStarted opens a betting round. Timestamp is the remote clock and is
// informational only.
type RoundStarted struct {
	Timestamp time.Time `json:"timestamp"`
}

// RoundStopped closes the current round after payouts.
type RoundStopped struct{}

// RoundNumber announces the number of the running round.
type RoundNumber struct {
	Number uint64 `json:"number"`
}

// WinningNumber announces the number drawn for the round.
type WinningNumber struct {
	Number int64 `json:"number"`
}

// Bet is the payload shared by BetPlaced and Payout.
type Bet struct {
	Better wallet.Address `json:"better"`
	Amount uint64         `json:"amount"`
	Number int64          `json:"betNumber"`
}

// BetPlaced is emitted once the ledger accepted a bet, for any player.
type BetPlaced struct {
	Bet
}

// Payout is emitted once per winning bet when the round settles.
type Payout struct {
	Bet
}

func (RoundStarted) Kind() Kind  { return KindRoundStarted }
func (RoundStopped) Kind() Kind  { return KindRoundStopped }
func (RoundNumber) Kind() Kind   { return KindRoundNumber }
func (WinningNumber) Kind() Kind { return KindWinningNumber }
func (BetPlaced) Kind() Kind     { return KindBetPlaced }
func (Payout) Kind() Kind        { return KindPayout }
