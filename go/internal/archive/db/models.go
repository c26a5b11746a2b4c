package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Round struct {
	ID             uuid.UUID             `json:"id"`
	RoundNumber    int64                 `json:"round_number"`
	WinningNumber  sql.NullInt64         `json:"winning_number"`
	StartedAt      sql.NullTime          `json:"started_at"`
	StoppedAt      time.Time             `json:"stopped_at"`
	Winners        int32                 `json:"winners"`
	LocalBetPlaced bool                  `json:"local_bet_placed"`
	LocalWinner    bool                  `json:"local_winner"`
	Players        pqtype.NullRawMessage `json:"players"`
	CreatedAt      time.Time             `json:"created_at"`
}

type RoundBet struct {
	RoundID   uuid.UUID `json:"round_id"`
	Position  int32     `json:"position"`
	Better    string    `json:"better"`
	Amount    int64     `json:"amount"`
	BetNumber int64     `json:"bet_number"`
}
