package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertRound = `-- name: InsertRound :exec
INSERT INTO rounds (
    id, round_number, winning_number, started_at, stopped_at,
    winners, local_bet_placed, local_winner, players
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
`

type InsertRoundParams struct {
	ID             uuid.UUID             `json:"id"`
	RoundNumber    int64                 `json:"round_number"`
	WinningNumber  sql.NullInt64         `json:"winning_number"`
	StartedAt      sql.NullTime          `json:"started_at"`
	StoppedAt      time.Time             `json:"stopped_at"`
	Winners        int32                 `json:"winners"`
	LocalBetPlaced bool                  `json:"local_bet_placed"`
	LocalWinner    bool                  `json:"local_winner"`
	Players        pqtype.NullRawMessage `json:"players"`
}

func (q *Queries) InsertRound(ctx context.Context, arg InsertRoundParams) error {
	_, err := q.db.ExecContext(ctx, insertRound,
		arg.ID,
		arg.RoundNumber,
		arg.WinningNumber,
		arg.StartedAt,
		arg.StoppedAt,
		arg.Winners,
		arg.LocalBetPlaced,
		arg.LocalWinner,
		arg.Players,
	)
	return err
}

const insertRoundBet = `-- name: InsertRoundBet :exec
INSERT INTO round_bets (round_id, position, better, amount, bet_number)
VALUES ($1, $2, $3, $4, $5)
`

type InsertRoundBetParams struct {
	RoundID   uuid.UUID `json:"round_id"`
	Position  int32     `json:"position"`
	Better    string    `json:"better"`
	Amount    int64     `json:"amount"`
	BetNumber int64     `json:"bet_number"`
}

func (q *Queries) InsertRoundBet(ctx context.Context, arg InsertRoundBetParams) error {
	_, err := q.db.ExecContext(ctx, insertRoundBet,
		arg.RoundID,
		arg.Position,
		arg.Better,
		arg.Amount,
		arg.BetNumber,
	)
	return err
}

const listRecentRounds = `-- name: ListRecentRounds :many
SELECT id, round_number, winning_number, started_at, stopped_at,
       winners, local_bet_placed, local_winner, players, created_at
FROM rounds
ORDER BY stopped_at DESC
LIMIT $1
`

func (q *Queries) ListRecentRounds(ctx context.Context, limit int32) ([]Round, error) {
	rows, err := q.db.QueryContext(ctx, listRecentRounds, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Round
	for rows.Next() {
		var i Round
		if err := rows.Scan(
			&i.ID,
			&i.RoundNumber,
			&i.WinningNumber,
			&i.StartedAt,
			&i.StoppedAt,
			&i.Winners,
			&i.LocalBetPlaced,
			&i.LocalWinner,
			&i.Players,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
