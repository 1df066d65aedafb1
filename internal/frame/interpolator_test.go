package frame

import (
	"testing"

	"example.com/puyo-bridge/internal/puyo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolator_ColdStart(t *testing.T) {
	st := loadState(t)
	src, err := FromState(st)
	require.NoError(t, err)

	in := NewInterpolator()
	frames, err := in.Step(st)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	for i, f := range frames {
		assert.Equal(t, i+1, f.ID)
	}

	// 1: nothing spawned yet, queue length preserved.
	for i, p := range frames[0].Players {
		want := append([]puyo.Pair{{}}, src.Players[i].Pairs[:len(src.Players[i].Pairs)-1]...)
		assert.Equal(t, want, p.Pairs)
		assert.Len(t, p.Pairs, len(src.Players[i].Pairs))
		assert.False(t, p.Event.HasAny())
	}

	// 2: piece appeared, source queue.
	for i, p := range frames[1].Players {
		assert.Equal(t, src.Players[i].Pairs, p.Pairs)
		assert.Equal(t, Event{Appeared: true}, p.Event)
	}

	// 3: grounded, queue advanced by one.
	for i, p := range frames[2].Players {
		assert.Equal(t, src.Players[i].Pairs[1:], p.Pairs)
		assert.Equal(t, Event{Grounded: true}, p.Event)
	}

	// 4: decision on the real state.
	for i, p := range frames[3].Players {
		assert.Equal(t, src.Players[i].Pairs, p.Pairs)
		assert.Equal(t, src.Players[i].Field, p.Field)
		assert.Equal(t, src.Players[i].Score, p.Score)
		assert.Equal(t, Event{Decision: true}, p.Event)
	}
}

func TestInterpolator_WarmContinuation(t *testing.T) {
	st := loadState(t)
	in := NewInterpolator()

	_, err := in.Step(st)
	require.NoError(t, err)

	for ply := 0; ply < 3; ply++ {
		frames, err := in.Step(st)
		require.NoError(t, err)
		require.Len(t, frames, 2)

		for _, p := range frames[0].Players {
			assert.Equal(t, Event{Appeared: true, Grounded: true}, p.Event)
		}
		for _, p := range frames[1].Players {
			assert.Equal(t, Event{Decision: true}, p.Event)
		}
	}
}

func TestInterpolator_IDsMonotonic(t *testing.T) {
	st := loadState(t)
	in := NewInterpolator()

	want := 1
	for ply := 0; ply < 5; ply++ {
		assert.Equal(t, want, in.NextID())
		frames, err := in.Step(st)
		require.NoError(t, err)
		for _, f := range frames {
			assert.Equal(t, want, f.ID)
			want++
		}
	}
	assert.Equal(t, 12, want-1)
}

func TestInterpolator_CopyOnEmit(t *testing.T) {
	st := loadState(t)
	in := NewInterpolator()

	frames, err := in.Step(st)
	require.NoError(t, err)
	before := frames[1].Clone()

	frames[0].Self().Pairs[1] = puyo.Pair{3, 3}
	frames[0].Self().Field[0] = 1
	st.Deals[2] = puyo.Pair{2, 2}
	st.ChildStates[0].Blocks[0] = 4

	assert.Equal(t, before, frames[1])
}

func TestInterpolator_EmptyQueue(t *testing.T) {
	st := loadState(t)
	st.Deals = nil

	frames, err := NewInterpolator().Step(st)
	require.NoError(t, err)
	for _, f := range frames {
		for _, p := range f.Players {
			assert.Empty(t, p.Pairs)
		}
	}
}

func TestInterpolator_BadState(t *testing.T) {
	st := loadState(t)
	st.ChildStates = st.ChildStates[:1]

	in := NewInterpolator()
	_, err := in.Step(st)
	require.Error(t, err)
	assert.Equal(t, 1, in.NextID(), "failed step must not consume ids")
}
