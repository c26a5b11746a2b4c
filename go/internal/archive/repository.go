// Package archive keeps a Postgres record of settled rounds.
package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/fairroulette/go/internal/archive/db"
	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
	"github.com/mcdev12/fairroulette/go/internal/sqlutil"
)

//go:embed schema.sql
var schema string

// DefaultHistoryLimit caps RecentRounds when the caller passes no limit.
const DefaultHistoryLimit = 20

type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		db:      conn,
		queries: db.New(conn),
	}
}

// EnsureSchema creates the archive tables when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return nil
}

// ArchiveRound stores the round and its bets in one transaction.
func (r *Repository) ArchiveRound(ctx context.Context, summary round.Summary) error {
	id := uuid.New()
	params, err := roundParams(id, summary)
	if err != nil {
		return err
	}

	err = sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		if err := q.InsertRound(ctx, params); err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}
		for _, bet := range betParams(id, summary.Players) {
			if err := q.InsertRoundBet(ctx, bet); err != nil {
				return fmt.Errorf("failed to insert round bet: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("round_id", id.String()).
		Uint64("round_number", summary.Number).
		Int("bets", len(summary.Players)).
		Msg("round archived")
	return nil
}

// RecentRounds returns the latest settled rounds, newest first.
func (r *Repository) RecentRounds(ctx context.Context, limit int) ([]round.Summary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.queries.ListRecentRounds(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent rounds: %w", err)
	}

	out := make([]round.Summary, 0, len(rows))
	for _, row := range rows {
		s, err := summaryFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func roundParams(id uuid.UUID, s round.Summary) (db.InsertRoundParams, error) {
	players := pqtype.NullRawMessage{}
	if len(s.Players) > 0 {
		raw, err := json.Marshal(s.Players)
		if err != nil {
			return db.InsertRoundParams{}, fmt.Errorf("failed to encode players: %w", err)
		}
		players = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	return db.InsertRoundParams{
		ID:             id,
		RoundNumber:    int64(s.Number),
		WinningNumber:  sqlutil.ToSqlInt64(s.WinningNumber),
		StartedAt:      sqlutil.ToSqlTime(s.StartedAt),
		StoppedAt:      s.StoppedAt,
		Winners:        int32(s.Winners),
		LocalBetPlaced: s.LocalBetPlaced,
		LocalWinner:    s.LocalWinner,
		Players:        players,
	}, nil
}

func betParams(id uuid.UUID, players []round.Player) []db.InsertRoundBetParams {
	out := make([]db.InsertRoundBetParams, 0, len(players))
	for i, p := range players {
		out = append(out, db.InsertRoundBetParams{
			RoundID:   id,
			Position:  int32(i),
			Better:    p.Address.String(),
			Amount:    int64(p.Bet),
			BetNumber: p.Number,
		})
	}
	return out
}

func summaryFromRow(row db.Round) (round.Summary, error) {
	s := round.Summary{
		Number:         uint64(row.RoundNumber),
		WinningNumber:  sqlutil.FromSqlInt64(row.WinningNumber),
		StartedAt:      sqlutil.FromSqlTime(row.StartedAt),
		StoppedAt:      row.StoppedAt,
		Winners:        int(row.Winners),
		LocalBetPlaced: row.LocalBetPlaced,
		LocalWinner:    row.LocalWinner,
		Players:        []round.Player{},
	}
	if row.Players.Valid {
		if err := json.Unmarshal(row.Players.RawMessage, &s.Players); err != nil {
			return round.Summary{}, fmt.Errorf("failed to decode players of round %s: %w", row.ID, err)
		}
	}
	return s, nil
}
