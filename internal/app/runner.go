package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"example.com/puyo-bridge/internal/bridge"
	"example.com/puyo-bridge/internal/driver"
	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/monitor"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/internal/store"
)

const deleteTimeout = 10 * time.Second

// GameAPI is the provider surface the runner drives. *gameapi.Client
// implements it.
type GameAPI interface {
	ListOpen(ctx context.Context, mode string) ([]gameapi.Game, error)
	Create(ctx context.Context, name, mode string) (gameapi.Game, error)
	Join(ctx context.Context, id, name string) (gameapi.Game, error)
	Poll(ctx context.Context, id string) (gameapi.State, error)
	Submit(ctx context.Context, id string, blocks []puyo.Cell) (gameapi.Ack, error)
	Delete(ctx context.Context, id string) error
}

// Bot is a running bot process.
type Bot interface {
	bridge.Peer
	Close() error
}

// StartBot launches a fresh bot for one game.
type StartBot func(ctx context.Context) (Bot, error)

// ProcessStarter starts command as a subprocess speaking the frame protocol
// on its stdin and stdout.
func ProcessStarter(command string, args []string, opts ...driver.StartOption) StartBot {
	return func(ctx context.Context) (Bot, error) {
		p, err := driver.Start(ctx, command, args, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

type ResultRecorder interface {
	Record(ctx context.Context, r store.Result) error
}

type StateJournal interface {
	SaveState(ctx context.Context, gameID string, st gameapi.State) error
}

// Announcer tells spectators about the games being played.
type Announcer interface {
	SetWidth(width int)
	GameOver(p monitor.ResultPayload)
}

type RunnerConfig struct {
	Name         string // shown to the provider and stored with results
	Mode         string
	AutoJoin     bool
	PollInterval time.Duration
	RestartDelay time.Duration
	Games        int // stop after this many attempts, failed ones included; 0 plays forever
}

// Runner plays games back to back: find or create a game, start a bot, poll
// and play until the game terminates, then clean up and start over.
type Runner struct {
	cfg   RunnerConfig
	api   GameAPI
	start StartBot

	rec      bridge.Recorder
	results  ResultRecorder
	states   StateJournal
	announce Announcer
	log      *slog.Logger
}

type RunnerOption func(*Runner)

func WithRecorder(r bridge.Recorder) RunnerOption {
	return func(rn *Runner) { rn.rec = r }
}

func WithResults(r ResultRecorder) RunnerOption {
	return func(rn *Runner) { rn.results = r }
}

func WithStates(s StateJournal) RunnerOption {
	return func(rn *Runner) { rn.states = s }
}

func WithAnnouncer(a Announcer) RunnerOption {
	return func(rn *Runner) { rn.announce = a }
}

func WithLogger(log *slog.Logger) RunnerOption {
	return func(rn *Runner) { rn.log = log }
}

func NewRunner(cfg RunnerConfig, api GameAPI, start StartBot, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:   cfg,
		api:   api,
		start: start,
		rec:   bridge.Recorders{},
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "runner", "bot", cfg.Name)
	return r
}

// Run plays until ctx is done or the configured number of games is reached.
// A failed game is logged and followed by a new one.
func (r *Runner) Run(ctx context.Context) error {
	restart := false
	for played := 0; r.cfg.Games == 0 || played < r.cfg.Games; played++ {
		if restart {
			if err := sleep(ctx, r.cfg.RestartDelay); err != nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		restart = true

		gameID, err := r.enter(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Error("could not enter a game", "err", err)
			continue
		}

		res, err := r.Play(ctx, gameID)
		switch {
		case err == nil:
			r.log.Info("game over, restarting", "game", gameID, "result", res.Result,
				"plies", res.Plies, "fallbacks", res.Fallbacks)
		case ctx.Err() != nil:
			return nil
		default:
			r.log.Error("game aborted", "game", gameID, "plies", res.Plies, "err", err)
		}
	}
	return nil
}

// enter joins the first open game when autojoin is on, else creates one.
func (r *Runner) enter(ctx context.Context) (string, error) {
	open, err := r.api.ListOpen(ctx, r.cfg.Mode)
	if err != nil {
		return "", err
	}

	var g gameapi.Game
	if r.cfg.AutoJoin && len(open) > 0 {
		g, err = r.api.Join(ctx, open[0].ID, r.cfg.Name)
	} else {
		g, err = r.api.Create(ctx, r.cfg.Name, r.cfg.Mode)
	}
	if err != nil {
		return "", err
	}
	if g.ID == "" {
		return "", fmt.Errorf("%w: provider returned no game id", gameapi.ErrBadState)
	}
	r.log.Info("entered game", "game", g.ID, "joined", r.cfg.AutoJoin && len(open) > 0)
	return g.ID, nil
}

// Play runs one game to its end with a fresh bot. The bot is always stopped
// and the game always deleted on return.
func (r *Runner) Play(ctx context.Context, gameID string) (store.Result, error) {
	defer r.deleteGame(ctx, gameID)

	bot, err := r.start(ctx)
	if err != nil {
		return store.Result{GameID: gameID}, fmt.Errorf("start bot: %w", err)
	}
	defer func() {
		if err := bot.Close(); err != nil {
			r.log.Warn("bot did not exit cleanly", "game", gameID, "err", err)
		}
	}()
	if p, ok := bot.(interface{ Pid() int }); ok {
		r.log.Info("bot started", "game", gameID, "pid", p.Pid())
	}

	sess := bridge.NewSession(gameID, bot, bridge.WithRecorder(r.rec), bridge.WithLogger(r.log))
	sub := gameapi.GameSubmitter{Client: r.api, GameID: gameID}
	res := store.Result{GameID: gameID, SessionID: sess.ID(), Bot: r.cfg.Name}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	width := 0
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}

		st, err := r.api.Poll(ctx, gameID)
		if err != nil {
			return res, err
		}
		if r.states != nil {
			if err := r.states.SaveState(ctx, gameID, st); err != nil {
				r.log.Warn("could not save state", "game", gameID, "err", err)
			}
		}

		if w := st.Geometry().Width; r.announce != nil && w != width {
			r.announce.SetWidth(w)
			width = w
		}

		if st.Status.Terminated {
			res.Result = st.Status.Result
			r.finish(ctx, res)
			return res, nil
		}
		if !st.CanPlay {
			continue
		}

		if deal, ok := st.CurrentDeal(); ok {
			r.log.Info("playing piece", "game", gameID, "deal", deal)
		}
		out, err := sess.Play(ctx, st, sub)
		if err != nil {
			var nlp *bridge.NoLegalPlacementError
			if errors.As(err, &nlp) {
				r.log.Error("bad blocks", "game", gameID, "blocks", nlp.Blocks, "reason", nlp.Reason)
			}
			return res, err
		}
		res.Plies++
		if out.Fallback >= 0 {
			res.Fallbacks++
		}
	}
}

func (r *Runner) finish(ctx context.Context, res store.Result) {
	if r.results != nil {
		if err := r.results.Record(ctx, res); err != nil {
			r.log.Warn("could not record result", "game", res.GameID, "err", err)
		}
	}
	if r.announce != nil {
		r.announce.GameOver(monitor.ResultPayload{
			Game:      res.GameID,
			Result:    res.Result,
			Plies:     res.Plies,
			Fallbacks: res.Fallbacks,
		})
	}
}

// deleteGame runs even after ctx is cancelled so an abandoned game does not
// linger on the provider.
func (r *Runner) deleteGame(ctx context.Context, gameID string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()
	if err := r.api.Delete(dctx, gameID); err != nil {
		r.log.Warn("could not delete game", "game", gameID, "err", err)
		return
	}
	r.log.Info("game deleted", "game", gameID)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
