package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"example.com/puyo-bridge/internal/frame"
	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/puyo"
	"github.com/google/uuid"
)

var (
	ErrNoLegalPlacement = errors.New("no legal placement")
	ErrNoDeal           = errors.New("no current deal")
)

// NoLegalPlacementError is returned when the provider rejected the peer's
// move and every forced placement after it.
type NoLegalPlacementError struct {
	Reason string
	Blocks []puyo.Cell // the peer's original placement
}

func (e *NoLegalPlacementError) Error() string {
	return fmt.Sprintf("cannot play a move because %s", e.Reason)
}

func (e *NoLegalPlacementError) Is(target error) bool {
	return target == ErrNoLegalPlacement
}

// Peer is the bot side of the protocol: strictly one response per request.
type Peer interface {
	Send(payload []byte) error
	Receive() ([]byte, error)
}

// Submitter hands a placement to the game provider.
type Submitter interface {
	Submit(ctx context.Context, blocks []puyo.Cell) (gameapi.Ack, error)
}

// Session drives one bot process through one game. It is not safe for
// concurrent use; a new bot process needs a new Session.
type Session struct {
	id     string
	gameID string
	peer   Peer
	interp *frame.Interpolator
	geom   *puyo.Geometry
	rec    Recorder
	log    *slog.Logger
}

type Option func(*Session)

// WithGeometry pins the board geometry instead of reading it from each state.
func WithGeometry(g puyo.Geometry) Option {
	return func(s *Session) { s.geom = &g }
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.rec = r }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func NewSession(gameID string, peer Peer, opts ...Option) *Session {
	s := &Session{
		id:     uuid.NewString(),
		gameID: gameID,
		peer:   peer,
		interp: frame.NewInterpolator(),
		rec:    Recorders{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("game", gameID, "session", s.id)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) geometry(st gameapi.State) puyo.Geometry {
	if s.geom != nil {
		return *s.geom
	}
	return st.Geometry()
}

// Decision is the peer's answer to the decision frame of one ply.
type Decision struct {
	Frame    frame.Frame // the decision frame that was sent
	Response frame.Response
}

// Decide sends every interpolated frame for st and returns the answer to the
// last one. Answers to the intermediate frames are read and dropped.
func (s *Session) Decide(ctx context.Context, st gameapi.State) (Decision, error) {
	frames, err := s.interp.Step(st)
	if err != nil {
		return Decision{}, fmt.Errorf("interpolate: %w", err)
	}
	g := s.geometry(st)

	var raw []byte
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		wire := f.Encode(g)
		s.rec.Record(ctx, s.gameID, f, wire)

		if err := s.peer.Send([]byte(wire)); err != nil {
			return Decision{}, fmt.Errorf("send frame %d: %w", f.ID, err)
		}
		if raw, err = s.peer.Receive(); err != nil {
			return Decision{}, fmt.Errorf("receive frame %d: %w", f.ID, err)
		}
	}

	last := frames[len(frames)-1]
	resp, err := frame.ParseResponse(string(raw))
	if err != nil {
		return Decision{}, fmt.Errorf("parse response to frame %d %q: %w", last.ID, raw, err)
	}
	if resp.ID != last.ID {
		s.log.Warn("peer answered a different frame", "want", last.ID, "got", resp.ID)
	}
	if resp.Message != "" {
		s.log.Debug("peer message", "msg", resp.Message)
	}
	return Decision{Frame: last, Response: resp}, nil
}

// Outcome describes how a ply was played.
type Outcome struct {
	Decision Decision
	Blocks   []puyo.Cell // what the provider accepted
	Fallback int         // column of the forced placement, -1 if the peer's move stood
}

// Play decides a move for st and submits it. If the provider rejects it, a
// forced placement is tried for every column from 0 to width-2.
func (s *Session) Play(ctx context.Context, st gameapi.State, sub Submitter) (Outcome, error) {
	d, err := s.Decide(ctx, st)
	if err != nil {
		return Outcome{}, err
	}
	g := s.geometry(st)

	pairs := d.Frame.Self().Pairs
	if len(pairs) == 0 {
		return Outcome{}, ErrNoDeal
	}
	pair := pairs[0]

	blocks, err := d.Response.Placement(pair, g)
	if err == nil {
		ack, err := sub.Submit(ctx, blocks)
		if err != nil {
			return Outcome{}, err
		}
		if ack.Success {
			return Outcome{Decision: d, Blocks: blocks, Fallback: -1}, nil
		}
		s.log.Warn("placement rejected", "blocks", blocks, "reason", ack.Reason, "response", d.Response.String())
	} else {
		s.log.Warn("peer chose an impossible placement", "response", d.Response.String(), "err", err)
	}

	col, forced, err := s.forcePlacement(ctx, pair, g, sub)
	if err != nil {
		var nlp *NoLegalPlacementError
		if errors.As(err, &nlp) {
			nlp.Blocks = blocks
		}
		return Outcome{}, err
	}
	return Outcome{Decision: d, Blocks: forced, Fallback: col}, nil
}

// forcePlacement drops the pair flat into a single row, scanning columns left
// to right. The last column is never an anchor: the pair is two cells wide.
func (s *Session) forcePlacement(ctx context.Context, pair puyo.Pair, g puyo.Geometry, sub Submitter) (int, []puyo.Cell, error) {
	var reason string
	for col := 0; col <= g.Width-2; col++ {
		blocks := ForcedPlacement(pair, col, g.Width)
		s.log.Info("forced placement attempt", "column", col, "blocks", blocks)

		ack, err := sub.Submit(ctx, blocks)
		if err != nil {
			return 0, nil, err
		}
		if ack.Success {
			return col, blocks, nil
		}
		reason = ack.Reason
	}
	return 0, nil, &NoLegalPlacementError{Reason: reason}
}

// ForcedPlacement is one row of width cells with pair at col and col+1.
func ForcedPlacement(pair puyo.Pair, col, width int) []puyo.Cell {
	blocks := make([]puyo.Cell, width)
	blocks[col] = pair[0]
	blocks[col+1] = pair[1]
	return blocks
}
