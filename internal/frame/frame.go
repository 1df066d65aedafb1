package frame

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/puyo"
)

var ErrIncompleteFrame = errors.New("incomplete frame")

// IncompleteFrameError names the mandatory key a payload was missing.
type IncompleteFrameError struct {
	Key string
}

func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("incomplete frame: missing key %s", e.Key)
}

func (e *IncompleteFrameError) Is(target error) bool {
	return target == ErrIncompleteFrame
}

// Side prefixes disambiguate the two players' keys on the wire.
const (
	SelfPrefix     = "Y"
	OpponentPrefix = "O"
)

// playerKeys is the fixed emit order of per-player keys.
var playerKeys = []string{"F", "P", "S", "X", "Y", "R", "O", "E"}

// Spawn position of the active piece, 0-based column and stored row.
const (
	spawnX = 2
	spawnY = 1
)

// Player is one side of a frame.
type Player struct {
	Field puyo.Field
	Pairs []puyo.Pair
	Score int
	X     int // 0-based column of the active piece
	Y     int // stored row; the wire carries Geometry.WireRow(Y)
	R     int
	Ojama int
	Event Event
}

// Frame is one request to the peer.
type Frame struct {
	ID       int
	Players  [2]Player // self, opponent
	Result   *int
	MatchEnd bool
}

func (f *Frame) Self() *Player     { return &f.Players[0] }
func (f *Frame) Opponent() *Player { return &f.Players[1] }

// Clone returns a deep copy that shares no slices with f.
func (f Frame) Clone() Frame {
	out := f
	for i := range out.Players {
		out.Players[i].Field = slices.Clone(f.Players[i].Field)
		out.Players[i].Pairs = slices.Clone(f.Players[i].Pairs)
	}
	if f.Result != nil {
		r := *f.Result
		out.Result = &r
	}
	return out
}

func (p Player) params(g puyo.Geometry) map[string]string {
	return map[string]string{
		"F": puyo.EncodeField(p.Field, g.Width),
		"P": puyo.EncodePairs(p.Pairs),
		"S": strconv.Itoa(p.Score),
		"X": strconv.Itoa(p.X + 1),
		"Y": strconv.Itoa(g.WireRow(p.Y)),
		"R": strconv.Itoa(p.R),
		"O": strconv.Itoa(p.Ojama),
		"E": p.Event.String(),
	}
}

// Encode renders the frame as space-separated KEY=VALUE tokens.
func (f Frame) Encode(g puyo.Geometry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID=%d", f.ID)
	if f.Result != nil {
		fmt.Fprintf(&b, " END=%d", *f.Result)
	}
	if f.MatchEnd {
		b.WriteString(" MATCHEND=1")
	}
	for i, prefix := range []string{SelfPrefix, OpponentPrefix} {
		params := f.Players[i].params(g)
		for _, k := range playerKeys {
			fmt.Fprintf(&b, " %s%s=%s", prefix, k, params[k])
		}
	}
	return b.String()
}

// Decode parses a frame payload. Key order does not matter; every per-player
// key and ID must be present.
func Decode(payload string, g puyo.Geometry) (Frame, error) {
	var (
		f     Frame
		hasID bool
	)
	sides := map[string]map[string]string{
		SelfPrefix:     {},
		OpponentPrefix: {},
	}

	for _, term := range strings.Fields(payload) {
		key, value, ok := strings.Cut(term, "=")
		if !ok {
			return Frame{}, fmt.Errorf("%w: term %q has no value", puyo.ErrMalformedToken, term)
		}
		switch key {
		case "ID":
			n, err := atoi(key, value)
			if err != nil {
				return Frame{}, err
			}
			f.ID, hasID = n, true
		case "END":
			n, err := atoi(key, value)
			if err != nil {
				return Frame{}, err
			}
			f.Result = &n
		case "MATCHEND":
			f.MatchEnd = value == "1"
		default:
			if len(key) < 2 {
				continue
			}
			if side, ok := sides[key[:1]]; ok {
				side[key[1:]] = value
			}
		}
	}
	if !hasID {
		return Frame{}, &IncompleteFrameError{Key: "ID"}
	}

	for i, prefix := range []string{SelfPrefix, OpponentPrefix} {
		p, err := decodePlayer(prefix, sides[prefix], g)
		if err != nil {
			return Frame{}, err
		}
		f.Players[i] = p
	}
	return f, nil
}

func decodePlayer(prefix string, params map[string]string, g puyo.Geometry) (Player, error) {
	for _, k := range playerKeys {
		if _, ok := params[k]; !ok {
			return Player{}, &IncompleteFrameError{Key: prefix + k}
		}
	}

	var (
		p   Player
		err error
	)
	if p.Field, err = puyo.DecodeField(params["F"], g.Width); err != nil {
		return Player{}, fmt.Errorf("%sF: %w", prefix, err)
	}
	if p.Pairs, err = puyo.DecodePairs(params["P"]); err != nil {
		return Player{}, fmt.Errorf("%sP: %w", prefix, err)
	}
	if p.Event, err = ParseEvent(params["E"]); err != nil {
		return Player{}, fmt.Errorf("%sE: %w", prefix, err)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"S", &p.Score}, {"X", &p.X}, {"Y", &p.Y}, {"R", &p.R}, {"O", &p.Ojama},
	}
	for _, it := range ints {
		n, err := atoi(prefix+it.key, params[it.key])
		if err != nil {
			return Player{}, err
		}
		*it.dst = n
	}
	p.X--
	p.Y = g.StoredRow(p.Y)
	return p, nil
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", puyo.ErrMalformedToken, key, value)
	}
	return n, nil
}

// FromState builds the frame the provider's state describes, with self first.
// The deal queue is the window of NumDeals pairs starting at each player's
// deal index, truncated when the deal list runs out.
func FromState(st gameapi.State) (Frame, error) {
	self, opp, err := st.Players()
	if err != nil {
		return Frame{}, err
	}
	width := st.Geometry().Width
	for i, cs := range []gameapi.ChildState{self, opp} {
		if len(cs.Blocks)%width != 0 {
			return Frame{}, fmt.Errorf("%w: player %d has %d cells, not whole rows of %d",
				gameapi.ErrBadState, i, len(cs.Blocks), width)
		}
		if j := slices.IndexFunc(cs.Blocks, func(c puyo.Cell) bool { return !c.Valid() }); j >= 0 {
			return Frame{}, fmt.Errorf("%w: player %d cell %d has value %d",
				gameapi.ErrBadState, i, j, cs.Blocks[j])
		}
	}
	for i, d := range st.Deals {
		if !d[0].Valid() || !d[1].Valid() {
			return Frame{}, fmt.Errorf("%w: deal %d is %v", gameapi.ErrBadState, i, d)
		}
	}

	f := Frame{ID: st.Time + 1}
	for i, cs := range []gameapi.ChildState{self, opp} {
		f.Players[i] = Player{
			Field: puyo.Field(slices.Clone(cs.Blocks)),
			Pairs: st.DealWindow(cs.DealIndex, st.NumDeals),
			Score: cs.TotalScore,
			X:     spawnX,
			Y:     spawnY,
			R:     0,
			Ojama: cs.PendingNuisance,
		}
	}
	return f, nil
}
