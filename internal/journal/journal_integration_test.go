//go:build integration

package journal

import (
	"testing"
	"time"

	"example.com/puyo-bridge/internal/frame"
	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_FramesInOrderWithTTL(t *testing.T) {
	ctx, st := suite.New(t)
	j := New(st.Redis, time.Hour, st.Logger)

	for i := 1; i <= 3; i++ {
		f := frame.Frame{ID: i}
		j.Record(ctx, "g1", f, "ID="+string(rune('0'+i)))
	}

	frames, err := j.Frames(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID=1", "ID=2", "ID=3"}, frames)

	ttl, err := st.Redis.TTL(ctx, framesKey("g1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestJournal_StateRoundTrip(t *testing.T) {
	ctx, st := suite.New(t)
	j := New(st.Redis, time.Hour, st.Logger)

	_, found, err := j.LoadState(ctx, "g2")
	require.NoError(t, err)
	assert.False(t, found)

	state := gameapi.State{
		Time:     4,
		NumDeals: 3,
		CanPlay:  true,
		Deals:    []puyo.Pair{{1, 2}, {3, 4}},
		ChildStates: []gameapi.ChildState{
			{TotalScore: 40, Blocks: []puyo.Cell{0, 1}},
			{TotalScore: 10, Blocks: []puyo.Cell{2, 0}},
		},
	}
	require.NoError(t, j.SaveState(ctx, "g2", state))

	got, found, err := j.LoadState(ctx, "g2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state, got)

	require.NoError(t, j.Delete(ctx, "g2"))
	_, found, err = j.LoadState(ctx, "g2")
	require.NoError(t, err)
	assert.False(t, found)
}
