package frame

import (
	"testing"

	"example.com/puyo-bridge/internal/puyo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	r, err := ParseResponse("ID=12 X=3 R=1 PX=4 PR=2 MSG=chain_5 MA=0,1,2")
	require.NoError(t, err)

	assert.Equal(t, 12, r.ID)
	assert.Equal(t, 2, r.X)
	assert.Equal(t, 1, r.R)
	require.NotNil(t, r.PreX)
	require.NotNil(t, r.PreR)
	assert.Equal(t, 3, *r.PreX)
	assert.Equal(t, 2, *r.PreR)
	assert.Equal(t, "chain_5", r.Message)
	assert.Equal(t, "0,1,2", r.MawashiArea)

	again, err := ParseResponse(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestParseResponse_OptionalFieldsAbsent(t *testing.T) {
	r, err := ParseResponse("ID=4 X=1 R=0")
	require.NoError(t, err)
	assert.Nil(t, r.PreX)
	assert.Nil(t, r.PreR)
	assert.Empty(t, r.Message)
	assert.Equal(t, "ID=4 X=1 R=0", r.String())
}

func TestParseResponse_MessageKeepsEquals(t *testing.T) {
	r, err := ParseResponse("ID=4 X=1 R=0 MSG=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", r.Message)
}

func TestParseResponse_Errors(t *testing.T) {
	_, err := ParseResponse("ID=4 R=0")
	require.ErrorIs(t, err, ErrIncompleteFrame)

	_, err = ParseResponse("")
	require.ErrorIs(t, err, ErrIncompleteFrame)

	_, err = ParseResponse("ID=4 X=one R=0")
	require.ErrorIs(t, err, puyo.ErrMalformedToken)

	_, err = ParseResponse("ID=4 X=1 R")
	require.ErrorIs(t, err, puyo.ErrMalformedToken)
}

func TestPlacement_Rotations(t *testing.T) {
	const a, b = puyo.Cell(1), puyo.Cell(2)
	pair := puyo.Pair{a, b}
	g := puyo.DefaultGeometry

	cases := []struct {
		name string
		x, r int
		want []puyo.Cell
	}{
		{"up", 2, 0, []puyo.Cell{
			0, 0, b, 0, 0, 0,
			0, 0, a, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
		}},
		{"right", 2, 1, []puyo.Cell{
			0, 0, 0, 0, 0, 0,
			0, 0, a, b, 0, 0,
			0, 0, 0, 0, 0, 0,
		}},
		{"down", 2, 2, []puyo.Cell{
			0, 0, 0, 0, 0, 0,
			0, 0, a, 0, 0, 0,
			0, 0, b, 0, 0, 0,
		}},
		{"left", 2, 3, []puyo.Cell{
			0, 0, 0, 0, 0, 0,
			0, a, b, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
		}},
		{"up_first_column", 0, 0, []puyo.Cell{
			b, 0, 0, 0, 0, 0,
			a, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0,
		}},
		{"left_last_column", 5, 3, []puyo.Cell{
			0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, b, a,
			0, 0, 0, 0, 0, 0,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Response{X: tc.x, R: tc.r}.Placement(pair, g)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPlacement_OutOfRange(t *testing.T) {
	pair := puyo.Pair{1, 2}
	g := puyo.DefaultGeometry

	for _, r := range []Response{
		{X: 5, R: 1},
		{X: 0, R: 3},
		{X: -1, R: 0},
		{X: 6, R: 0},
		{X: 2, R: 4},
	} {
		_, err := r.Placement(pair, g)
		require.ErrorIs(t, err, ErrPlacementOutOfRange, "%+v", r)
	}
}
