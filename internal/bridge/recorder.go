package bridge

import (
	"context"

	"example.com/puyo-bridge/internal/frame"
)

// Recorder observes every frame before it is sent to the peer. Recorders
// must not block the session; failures are theirs to log.
type Recorder interface {
	Record(ctx context.Context, gameID string, f frame.Frame, wire string)
}

// Recorders fans a frame out to several recorders in order.
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, gameID string, f frame.Frame, wire string) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, gameID, f, wire)
		}
	}
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, gameID string, f frame.Frame, wire string)

func (fn RecorderFunc) Record(ctx context.Context, gameID string, f frame.Frame, wire string) {
	fn(ctx, gameID, f, wire)
}
