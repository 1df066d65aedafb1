package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/internal/render"
)

var ErrNoFrames = errors.New("no frames recorded")

// GameLog is the journal of one game as replay reads it.
type GameLog interface {
	Frames(ctx context.Context, gameID string) ([]string, error)
	LoadState(ctx context.Context, gameID string) (gameapi.State, bool, error)
}

// Replay draws every journaled frame of a game to w, followed by a line for
// the last state the provider reported, if one was kept.
func Replay(ctx context.Context, src GameLog, gameID string, g puyo.Geometry, w io.Writer) (int, error) {
	frames, err := src.Frames(ctx, gameID)
	if err != nil {
		return 0, err
	}
	if len(frames) == 0 {
		return 0, fmt.Errorf("%w for game %s", ErrNoFrames, gameID)
	}
	n, err := render.Stream(strings.NewReader(strings.Join(frames, "\n")), w, g)
	if err != nil {
		return n, err
	}

	st, found, err := src.LoadState(ctx, gameID)
	if err != nil {
		return n, fmt.Errorf("load final state: %w", err)
	}
	if found {
		_, err = fmt.Fprintln(w, finalLine(st))
	}
	return n, err
}

func finalLine(st gameapi.State) string {
	if !st.Status.Terminated {
		return fmt.Sprintf("last state: time=%d, unfinished", st.Time)
	}
	return fmt.Sprintf("last state: time=%d, result=%s", st.Time, st.Status.Result)
}
