package gateway

import (
	"time"

	"github.com/mcdev12/fairroulette/go/internal/notify"
	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

type MessageType string

const (
	MessageNotification MessageType = "notification"
	MessageRound        MessageType = "round"
)

// Message is what UIs receive over the socket. Exactly one of the payload
// fields is set, matching Type.
type Message struct {
	Type         MessageType          `json:"type"`
	Timestamp    time.Time            `json:"timestamp"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Round        *RoundView           `json:"round,omitempty"`
}

// RoundView is the round as the UI renders it.
type RoundView struct {
	Number            uint64           `json:"number"`
	Active            bool             `json:"active"`
	Phase             round.Phase      `json:"phase"`
	StartedAt         *time.Time       `json:"startedAt,omitempty"`
	TimeLeft          *int             `json:"timeLeftSec,omitempty"`
	BetSelection      int64            `json:"betSelection"`
	BetAmount         uint64           `json:"betAmount"`
	BetPlaced         bool             `json:"betPlaced"`
	PlacingBet        bool             `json:"placingBet"`
	ShowBettingSystem bool             `json:"showBettingSystem"`
	ShowWinningNumber bool             `json:"showWinningNumber"`
	WinningNumber     *int64           `json:"winningNumber,omitempty"`
	Winners           int              `json:"winners"`
	Winner            bool             `json:"winner"`
	Players           []round.Player   `json:"players"`
	Logs              []round.LogEntry `json:"logs"`
}

// WalletView is the player's wallet as the UI renders it.
type WalletView struct {
	Address    wallet.Address   `json:"address"`
	Index      uint64           `json:"index"`
	History    []wallet.Address `json:"history"`
	Balance    uint64           `json:"balance"`
	ObservedAt *time.Time       `json:"observedAt,omitempty"`
	Wealthy    bool             `json:"wealthy"`
	Requesting bool             `json:"requestingFunds"`
}

func newRoundView(st round.State, left int, started bool) *RoundView {
	v := &RoundView{
		Number:            st.Round.Number,
		Active:            st.Round.Active,
		Phase:             st.Phase,
		BetSelection:      st.Round.BetSelection,
		BetAmount:         st.Round.BetAmount,
		BetPlaced:         st.Round.BetPlaced,
		PlacingBet:        st.PlacingBet,
		ShowBettingSystem: st.ShowBettingSystem,
		ShowWinningNumber: st.ShowWinningNumber,
		WinningNumber:     st.Round.WinningNumber,
		Winners:           st.Round.Winners,
		Winner:            st.Winner,
		Players:           st.Round.Players,
		Logs:              st.Round.Logs,
	}
	if started {
		at := st.Round.StartedAt
		v.StartedAt = &at
		v.TimeLeft = &left
	}
	if v.Players == nil {
		v.Players = []round.Player{}
	}
	if v.Logs == nil {
		v.Logs = []round.LogEntry{}
	}
	return v
}
