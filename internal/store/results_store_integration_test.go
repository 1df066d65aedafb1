//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"example.com/puyo-bridge/internal/migrate"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}
	require.NoError(t, migrate.Up(url, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE game_results`)
	require.NoError(t, err)
	return pool
}

func TestResultStore_RecordAndSummary(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore(newPool(t))

	results := []Result{
		{GameID: "g1", Bot: "tanuki", Result: "win", Plies: 40, Fallbacks: 1},
		{GameID: "g2", Bot: "tanuki", Result: "lose", Plies: 25},
		{GameID: "g3", Bot: "tanuki", Result: "win", Plies: 31, Fallbacks: 2},
		{GameID: "g4", Bot: "other", Result: "win", Plies: 10},
	}
	for _, r := range results {
		r.SessionID = uuid.NewString()
		require.NoError(t, s.Record(ctx, r))
	}

	sum, err := s.Summary(ctx, "tanuki")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Games)
	assert.Equal(t, 96, sum.Plies)
	assert.Equal(t, 3, sum.Fallbacks)
	assert.Equal(t, map[string]int{"win": 2, "lose": 1}, sum.Results)
}

func TestResultStore_RecordTwiceKeepsLatest(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore(newPool(t))

	r := Result{GameID: "g1", SessionID: uuid.NewString(), Bot: "tanuki", Plies: 3}
	require.NoError(t, s.Record(ctx, r))

	r.Result = "draw"
	r.Plies = 9
	require.NoError(t, s.Record(ctx, r))

	got, found, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "draw", got.Result)
	assert.Equal(t, 9, got.Plies)

	_, found, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
