package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/monitor"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	open   []gameapi.Game
	script []gameapi.State // consumed one per poll; terminated once empty
	result string
	accept func(blocks []puyo.Cell) bool

	created   int
	joined    []string
	deleted   []string
	submitted [][]puyo.Cell
	polls     int
}

func (f *fakeAPI) ListOpen(context.Context, string) ([]gameapi.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, nil
}

func (f *fakeAPI) Create(context.Context, string, string) (gameapi.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return gameapi.Game{ID: fmt.Sprintf("new-%d", f.created)}, nil
}

func (f *fakeAPI) Join(_ context.Context, id, _ string) (gameapi.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
	return gameapi.Game{ID: id}, nil
}

func (f *fakeAPI) Poll(context.Context, string) (gameapi.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.script) == 0 {
		return gameapi.State{Status: gameapi.Status{Terminated: true, Result: f.result}}, nil
	}
	st := f.script[0]
	f.script = f.script[1:]
	return st, nil
}

func (f *fakeAPI) Submit(_ context.Context, _ string, blocks []puyo.Cell) (gameapi.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, blocks)
	if f.accept == nil || f.accept(blocks) {
		return gameapi.Ack{Success: true}, nil
	}
	return gameapi.Ack{Reason: "illegal"}, nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) snapshot() (created int, joined, deleted []string, submitted int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, append([]string(nil), f.joined...), append([]string(nil), f.deleted...), len(f.submitted)
}

// fakeBot answers every frame with the same move.
type fakeBot struct {
	answer  string
	pending string
	frames  int
	closed  bool
}

func (b *fakeBot) Send(payload []byte) error {
	b.frames++
	id, _, _ := strings.Cut(string(payload), " ")
	b.pending = id + " " + b.answer
	return nil
}

func (b *fakeBot) Receive() ([]byte, error) { return []byte(b.pending), nil }

func (b *fakeBot) Close() error {
	b.closed = true
	return nil
}

type botFactory struct {
	mu   sync.Mutex
	bots []*fakeBot
	err  error
}

func (f *botFactory) start(context.Context) (Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b := &fakeBot{answer: "X=3 R=0"}
	f.bots = append(f.bots, b)
	return b, nil
}

type memResults struct {
	mu      sync.Mutex
	results []store.Result
}

func (m *memResults) Record(_ context.Context, r store.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

type memStates struct {
	mu    sync.Mutex
	saved int
}

func (m *memStates) SaveState(context.Context, string, gameapi.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved++
	return nil
}

type announcements struct {
	results []monitor.ResultPayload
	widths  []int
}

func (a *announcements) SetWidth(width int) { a.widths = append(a.widths, width) }

func (a *announcements) GameOver(p monitor.ResultPayload) { a.results = append(a.results, p) }

func playable(time int, canPlay bool) gameapi.State {
	blocks := make([]puyo.Cell, 12)
	return gameapi.State{
		Time:     time,
		NumDeals: 3,
		Width:    6,
		Height:   12,
		CanPlay:  canPlay,
		ChildStates: []gameapi.ChildState{
			{GhostHeight: 1, Blocks: blocks},
			{GhostHeight: 1, Blocks: blocks},
		},
		Deals: []puyo.Pair{{1, 2}, {4, 1}, {4, 3}},
	}
}

func testConfig(games int) RunnerConfig {
	return RunnerConfig{
		Name:         "puyoai-test",
		Mode:         "puyo:duel",
		PollInterval: time.Millisecond,
		RestartDelay: time.Millisecond,
		Games:        games,
	}
}

func TestRunner_PlaysGameToTheEnd(t *testing.T) {
	api := &fakeAPI{
		script: []gameapi.State{playable(0, true), playable(1, false), playable(2, true)},
		result: "win",
	}
	bots := &botFactory{}
	results := &memResults{}
	states := &memStates{}
	var ann announcements

	r := NewRunner(testConfig(1), api, bots.start,
		WithResults(results), WithStates(states), WithAnnouncer(&ann))
	require.NoError(t, r.Run(context.Background()))

	created, joined, deleted, submitted := api.snapshot()
	assert.Equal(t, 1, created)
	assert.Empty(t, joined)
	assert.Equal(t, []string{"new-1"}, deleted)
	assert.Equal(t, 2, submitted)
	assert.Equal(t, 4, states.saved)

	require.Len(t, bots.bots, 1)
	assert.True(t, bots.bots[0].closed)
	assert.Equal(t, 6, bots.bots[0].frames)

	require.Len(t, results.results, 1)
	got := results.results[0]
	assert.Equal(t, "new-1", got.GameID)
	assert.Equal(t, "puyoai-test", got.Bot)
	assert.Equal(t, "win", got.Result)
	assert.Equal(t, 2, got.Plies)
	assert.Zero(t, got.Fallbacks)
	assert.NotEmpty(t, got.SessionID)

	require.Len(t, ann.results, 1)
	assert.Equal(t, monitor.ResultPayload{Game: "new-1", Result: "win", Plies: 2}, ann.results[0])
	// three polls of a 6-wide board announce the width once
	assert.Equal(t, []int{6}, ann.widths)
}

func TestRunner_AutoJoin(t *testing.T) {
	tests := []struct {
		name        string
		autojoin    bool
		open        []gameapi.Game
		wantJoined  []string
		wantCreated int
	}{
		{"joins first open game", true, []gameapi.Game{{ID: "a"}, {ID: "b"}}, []string{"a"}, 0},
		{"creates when nothing is open", true, nil, nil, 1},
		{"creates without autojoin", false, []gameapi.Game{{ID: "a"}}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{open: tt.open}
			cfg := testConfig(1)
			cfg.AutoJoin = tt.autojoin

			require.NoError(t, NewRunner(cfg, api, (&botFactory{}).start).Run(context.Background()))

			created, joined, deleted, _ := api.snapshot()
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantJoined, joined)
			assert.Len(t, deleted, 1)
		})
	}
}

func TestRunner_CountsFallbacks(t *testing.T) {
	api := &fakeAPI{
		script: []gameapi.State{playable(0, true)},
		// only forced single-row placements
		accept: func(blocks []puyo.Cell) bool { return len(blocks) == 6 },
	}
	results := &memResults{}

	require.NoError(t, NewRunner(testConfig(1), api, (&botFactory{}).start, WithResults(results)).Run(context.Background()))

	require.Len(t, results.results, 1)
	assert.Equal(t, 1, results.results[0].Plies)
	assert.Equal(t, 1, results.results[0].Fallbacks)
}

func TestRunner_NoLegalPlacementAbortsGame(t *testing.T) {
	api := &fakeAPI{
		script: []gameapi.State{playable(0, true)},
		accept: func([]puyo.Cell) bool { return false },
	}
	bots := &botFactory{}
	results := &memResults{}

	var logs bytes.Buffer
	r := NewRunner(testConfig(1), api, bots.start, WithResults(results), WithLogger(NewLogger(&logs, "text", "info")))
	require.NoError(t, r.Run(context.Background()))

	_, _, deleted, submitted := api.snapshot()
	assert.Equal(t, []string{"new-1"}, deleted)
	assert.Equal(t, 1+5, submitted)
	assert.True(t, bots.bots[0].closed)
	assert.Empty(t, results.results)
	assert.Contains(t, logs.String(), "game aborted")
	assert.Contains(t, logs.String(), "cannot play a move because illegal")
}

func TestRunner_BotStartFailureStillDeletes(t *testing.T) {
	api := &fakeAPI{}
	bots := &botFactory{err: errors.New("exec: no such file")}

	require.NoError(t, NewRunner(testConfig(2), api, bots.start).Run(context.Background()))

	created, _, deleted, _ := api.snapshot()
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{"new-1", "new-2"}, deleted)
}

func TestRunner_CancelDeletesGame(t *testing.T) {
	script := make([]gameapi.State, 0, 10000)
	for i := 0; i < cap(script); i++ {
		script = append(script, playable(i, false))
	}
	api := &fakeAPI{script: script}
	bots := &botFactory{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRunner(testConfig(0), api, bots.start).Run(ctx) }()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.polls > 3
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	_, _, deleted, _ := api.snapshot()
	assert.Equal(t, []string{"new-1"}, deleted)
}

func TestBotName(t *testing.T) {
	var cfg = testAppConfig()
	cfg.Bot.Command = "/opt/puyoai/bin/tanuki"
	assert.Equal(t, "puyoai-tanuki", BotName(cfg))

	cfg.Bot.Name = "custom"
	assert.Equal(t, "custom", BotName(cfg))
}
