package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is one finished game as seen by the bridge.
type Result struct {
	GameID     string
	SessionID  string
	Bot        string
	Result     string
	Plies      int
	Fallbacks  int
	FinishedAt time.Time
}

// Summary aggregates every recorded game of one bot.
type Summary struct {
	Bot       string
	Games     int
	Plies     int
	Fallbacks int
	Results   map[string]int
}

type ResultStore struct {
	db *pgxpool.Pool
}

func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{db: db}
}

// Record stores r. Recording the same game twice keeps the latest row.
func (s *ResultStore) Record(ctx context.Context, r Result) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game_results (game_id, session_id, bot, result, plies, fallbacks)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    result = EXCLUDED.result,
		    plies = EXCLUDED.plies,
		    fallbacks = EXCLUDED.fallbacks,
		    finished_at = now()
	`, r.GameID, r.SessionID, r.Bot, r.Result, r.Plies, r.Fallbacks)
	return err
}

func (s *ResultStore) Get(ctx context.Context, gameID string) (Result, bool, error) {
	var r Result
	err := s.db.QueryRow(ctx, `
		SELECT game_id, session_id::text, bot, result, plies, fallbacks, finished_at
		FROM game_results
		WHERE game_id = $1
	`, gameID).Scan(&r.GameID, &r.SessionID, &r.Bot, &r.Result, &r.Plies, &r.Fallbacks, &r.FinishedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	return r, true, nil
}

func (s *ResultStore) Summary(ctx context.Context, bot string) (Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT result, count(*), coalesce(sum(plies), 0), coalesce(sum(fallbacks), 0)
		FROM game_results
		WHERE bot = $1
		GROUP BY result
	`, bot)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	sum := Summary{Bot: bot, Results: map[string]int{}}
	for rows.Next() {
		var (
			result                 string
			games, plies, fallback int
		)
		if err := rows.Scan(&result, &games, &plies, &fallback); err != nil {
			return Summary{}, err
		}
		sum.Results[result] = games
		sum.Games += games
		sum.Plies += plies
		sum.Fallbacks += fallback
	}
	return sum, rows.Err()
}
