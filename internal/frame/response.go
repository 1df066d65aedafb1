package frame

import (
	"errors"
	"fmt"
	"strings"

	"example.com/puyo-bridge/internal/puyo"
)

var ErrPlacementOutOfRange = errors.New("placement out of range")

// Response is the peer's answer to a frame.
type Response struct {
	ID          int
	X           int // 0-based column; 1-based on the wire
	R           int
	PreX        *int
	PreR        *int
	Message     string
	MawashiArea string
}

// ParseResponse decodes a peer payload. ID, X and R are mandatory.
func ParseResponse(payload string) (Response, error) {
	var (
		r    Response
		seen = map[string]bool{}
	)
	for _, term := range strings.Fields(payload) {
		key, value, ok := strings.Cut(term, "=")
		if !ok {
			return Response{}, fmt.Errorf("%w: term %q has no value", puyo.ErrMalformedToken, term)
		}
		seen[key] = true

		switch key {
		case "MSG":
			r.Message = value
			continue
		case "MA":
			r.MawashiArea = value
			continue
		case "ID", "X", "R", "PX", "PR":
		default:
			continue
		}

		n, err := atoi(key, value)
		if err != nil {
			return Response{}, err
		}
		switch key {
		case "ID":
			r.ID = n
		case "X":
			r.X = n - 1
		case "R":
			r.R = n
		case "PX":
			px := n - 1
			r.PreX = &px
		case "PR":
			pr := n
			r.PreR = &pr
		}
	}

	for _, k := range []string{"ID", "X", "R"} {
		if !seen[k] {
			return Response{}, &IncompleteFrameError{Key: k}
		}
	}
	return r, nil
}

func (r Response) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID=%d X=%d R=%d", r.ID, r.X+1, r.R)
	if r.PreX != nil {
		fmt.Fprintf(&b, " PX=%d", *r.PreX+1)
	}
	if r.PreR != nil {
		fmt.Fprintf(&b, " PR=%d", *r.PreR)
	}
	if r.Message != "" {
		b.WriteString(" MSG=" + r.Message)
	}
	if r.MawashiArea != "" {
		b.WriteString(" MA=" + r.MawashiArea)
	}
	return b.String()
}

// rotationOffset is where the second cell sits relative to the anchor, as
// (column, row) deltas with rows growing downward.
var rotationOffset = [4][2]int{
	{0, -1}, // up
	{1, 0},  // right
	{0, 1},  // down
	{-1, 0}, // left
}

// Placement turns the chosen column and rotation into a grid of
// g.PlacementSize() cells: the anchor at row 1 holds pair[0], and pair[1]
// sits next to it according to R.
func (r Response) Placement(pair puyo.Pair, g puyo.Geometry) ([]puyo.Cell, error) {
	if r.R < 0 || r.R > 3 {
		return nil, fmt.Errorf("%w: rotation %d", ErrPlacementOutOfRange, r.R)
	}
	const anchorRow = 1
	off := rotationOffset[r.R]
	col2, row2 := r.X+off[0], anchorRow+off[1]
	if r.X < 0 || r.X >= g.Width || col2 < 0 || col2 >= g.Width {
		return nil, fmt.Errorf("%w: column %d rotation %d", ErrPlacementOutOfRange, r.X, r.R)
	}

	blocks := make([]puyo.Cell, g.PlacementSize())
	blocks[anchorRow*g.Width+r.X] = pair[0]
	blocks[row2*g.Width+col2] = pair[1]
	return blocks, nil
}
