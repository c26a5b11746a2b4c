// Command archive_report prints a summary of the archived rounds.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/fairroulette/go/internal/dbconfig"
)

type numberCount struct {
	Number int64
	Rounds int
}

type betterTotal struct {
	Better string
	Bets   int
	Staked int64
}

type report struct {
	Rounds         int
	LocalBets      int
	LocalWins      int
	RoundsWithWins int
	Numbers        []numberCount
	TopBetters     []betterTotal
}

func main() {
	limit := 5
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "usage: archive_report [top-betters]\n")
			os.Exit(2)
		}
		limit = n
	}

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Collect
	r, err := collect(ctx, pool, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build report: %v\n", err)
		os.Exit(1)
	}

	// 3) Print
	render(os.Stdout, r)
}

func collect(ctx context.Context, pool *pgxpool.Pool, limit int) (report, error) {
	var r report
	err := pool.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE local_bet_placed),
               COUNT(*) FILTER (WHERE local_winner),
               COUNT(*) FILTER (WHERE winners > 0)
        FROM rounds
    `).Scan(&r.Rounds, &r.LocalBets, &r.LocalWins, &r.RoundsWithWins)
	if err != nil {
		return report{}, fmt.Errorf("count rounds: %w", err)
	}

	rows, err := pool.Query(ctx, `
        SELECT winning_number, COUNT(*)
        FROM rounds
        WHERE winning_number IS NOT NULL
        GROUP BY winning_number
        ORDER BY winning_number
    `)
	if err != nil {
		return report{}, fmt.Errorf("count winning numbers: %w", err)
	}
	for rows.Next() {
		var c numberCount
		if err := rows.Scan(&c.Number, &c.Rounds); err != nil {
			rows.Close()
			return report{}, err
		}
		r.Numbers = append(r.Numbers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report{}, err
	}

	rows, err = pool.Query(ctx, `
        SELECT better, COUNT(*), SUM(amount)::BIGINT
        FROM round_bets
        GROUP BY better
        ORDER BY SUM(amount) DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return report{}, fmt.Errorf("top betters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b betterTotal
		if err := rows.Scan(&b.Better, &b.Bets, &b.Staked); err != nil {
			return report{}, err
		}
		r.TopBetters = append(r.TopBetters, b)
	}
	return r, rows.Err()
}

func render(w io.Writer, r report) {
	fmt.Fprintf(w, "Rounds archived: %d (%d with winners)\n", r.Rounds, r.RoundsWithWins)
	fmt.Fprintf(w, "Local bets: %d, wins: %d", r.LocalBets, r.LocalWins)
	if r.LocalBets > 0 {
		fmt.Fprintf(w, " (%.1f%%)", 100*float64(r.LocalWins)/float64(r.LocalBets))
	}
	fmt.Fprintln(w)

	if len(r.Numbers) > 0 {
		fmt.Fprintln(w, "Winning numbers:")
		for _, c := range r.Numbers {
			fmt.Fprintf(w, "  %d: %d\n", c.Number, c.Rounds)
		}
	}
	if len(r.TopBetters) > 0 {
		fmt.Fprintln(w, "Top betters:")
		for _, b := range r.TopBetters {
			fmt.Fprintf(w, "  %s  %d bets, %d staked\n", b.Better, b.Bets, b.Staked)
		}
	}
}
