package frame

import (
	"slices"

	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/puyo"
)

// Interpolator expands one provider state into the frames the peer expects
// between two decisions: piece spawn, grounding, then the decision request.
//
// Frame ids are strictly increasing from 1 for the life of the value, so one
// Interpolator belongs to exactly one peer session.
type Interpolator struct {
	nextID int
}

func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// NextID is the id the next emitted frame will carry.
func (in *Interpolator) NextID() int {
	return in.nextID + 1
}

// Step returns the frames for st. The first call of a session yields four
// frames, every later call two. The last frame is always the decision request
// carrying the real field and deal queue.
func (in *Interpolator) Step(st gameapi.State) ([]Frame, error) {
	src, err := FromState(st)
	if err != nil {
		return nil, err
	}

	var out []Frame
	emit := func(f Frame) {
		in.nextID++
		f.ID = in.nextID
		out = append(out, f.Clone())
	}

	if in.nextID == 0 {
		f := src.Clone()
		for i := range f.Players {
			f.Players[i].Pairs = withEmptyHead(src.Players[i].Pairs)
		}
		emit(f)

		f = src.Clone()
		for i := range f.Players {
			f.Players[i].Event.Appeared = true
		}
		emit(f)

		f = src.Clone()
		for i := range f.Players {
			p := &f.Players[i]
			p.Event.Appeared = false
			p.Event.Grounded = true
			p.Pairs = advance(src.Players[i].Pairs)
		}
		emit(f)
	} else {
		f := src.Clone()
		for i := range f.Players {
			f.Players[i].Event.Appeared = true
			f.Players[i].Event.Grounded = true
		}
		emit(f)
	}

	f := src.Clone()
	for i := range f.Players {
		p := &f.Players[i]
		p.Event.Appeared = false
		p.Event.Grounded = false
		p.Event.Decision = true
	}
	emit(f)
	return out, nil
}

// withEmptyHead shows "nothing spawned yet": an empty pair in front, the last
// pair dropped so the length is unchanged.
func withEmptyHead(pairs []puyo.Pair) []puyo.Pair {
	if len(pairs) == 0 {
		return []puyo.Pair{}
	}
	out := make([]puyo.Pair, 0, len(pairs))
	out = append(out, puyo.Pair{puyo.Empty, puyo.Empty})
	return append(out, pairs[:len(pairs)-1]...)
}

func advance(pairs []puyo.Pair) []puyo.Pair {
	if len(pairs) == 0 {
		return []puyo.Pair{}
	}
	return slices.Clone(pairs[1:])
}
