package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"example.com/puyo-bridge/internal/auth"
	"example.com/puyo-bridge/internal/bridge"
	"example.com/puyo-bridge/internal/config"
	"example.com/puyo-bridge/internal/driver"
	"example.com/puyo-bridge/internal/gameapi"
	"example.com/puyo-bridge/internal/journal"
	"example.com/puyo-bridge/internal/migrate"
	"example.com/puyo-bridge/internal/monitor"
	"example.com/puyo-bridge/internal/render"
	"example.com/puyo-bridge/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const pingTimeout = 10 * time.Second

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	runner  *Runner
	monitor *monitor.Server
}

// Options let callers replace the parts that talk to the outside world.
type Options struct {
	API   GameAPI  // defaults to an HTTP client for cfg.API.URL
	Start StartBot // defaults to running cfg.Bot.Command
	Games int
}

// BotName is the name the bridge plays under.
func BotName(cfg config.Config) string {
	if cfg.Bot.Name != "" {
		return cfg.Bot.Name
	}
	return "puyoai-" + filepath.Base(cfg.Bot.Command)
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}
	name := BotName(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	runnerOpts := []RunnerOption{WithLogger(log)}
	recorders := bridge.Recorders{render.Logger{Log: log}}

	// --- Postgres (optional) ---
	if cfg.Postgres.URL != "" {
		if cfg.Postgres.RunMigrations {
			if err := migrate.Up(cfg.Postgres.URL, log); err != nil {
				return nil, err
			}
		}
		dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		if err := dbpool.Ping(pingCtx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		a.db = dbpool
		runnerOpts = append(runnerOpts, WithResults(store.NewResultStore(dbpool)))
	}

	// --- Redis (optional) ---
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			_ = a.Close()
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
		a.rdb = rdb
		j := journal.New(rdb, cfg.Redis.JournalTTL, log)
		recorders = append(recorders, j)
		runnerOpts = append(runnerOpts, WithStates(j))
	}

	// --- Monitor (optional) ---
	if cfg.Monitor.Addr != "" {
		hub := monitor.NewHub(log)
		a.monitor = monitor.NewServer(monitor.Config{
			Addr:            cfg.Monitor.Addr,
			User:            cfg.Monitor.User,
			PasswordHash:    cfg.Monitor.PasswordHash,
			TokenSecret:     []byte(cfg.API.Secret),
			ShutdownTimeout: cfg.Monitor.ShutdownTimeout,
		}, hub, log)
		recorders = append(recorders, hub)
		runnerOpts = append(runnerOpts, WithAnnouncer(hub))
	}
	runnerOpts = append(runnerOpts, WithRecorder(recorders))

	// --- Game API ---
	api := opts.API
	if api == nil {
		clientOpts := []gameapi.Option{
			gameapi.WithTimeout(cfg.API.Timeout, cfg.API.PollTimeout),
			gameapi.WithRetry(cfg.API.Retries, cfg.API.RetryDelay),
			gameapi.WithLogger(log),
		}
		if cfg.API.Secret != "" {
			token, err := auth.Sign([]byte(cfg.API.Secret), name, cfg.API.TokenTTL)
			if err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("sign api token: %w", err)
			}
			clientOpts = append(clientOpts, gameapi.WithToken(token))
		}
		api = gameapi.NewClient(cfg.API.URL, clientOpts...)
	}

	start := opts.Start
	if start == nil {
		start = ProcessStarter(cfg.Bot.Command, cfg.Bot.Args,
			driver.WithStderr(os.Stderr), driver.WithDir(cfg.Bot.Dir))
	}

	a.runner = NewRunner(RunnerConfig{
		Name:         name,
		Mode:         cfg.API.Mode,
		AutoJoin:     cfg.Bot.AutoJoin,
		PollInterval: cfg.API.PollInterval,
		RestartDelay: cfg.API.RestartDelay,
		Games:        opts.Games,
	}, api, start, runnerOpts...)

	return a, nil
}

// Run plays games and serves the monitor until ctx is done or the runner
// stops on its own.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("bridge starting", "api", a.cfg.API.URL, "command", a.cfg.Bot.Command, "autojoin", a.cfg.Bot.AutoJoin)

	g.Go(func() error {
		defer cancel()
		return a.runner.Run(gctx)
	})

	if a.monitor != nil {
		g.Go(func() error {
			return a.monitor.Run(gctx)
		})
	}

	err := g.Wait()
	_ = a.Close()
	return err
}

func (a *App) Close() error {
	// best-effort
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
	return nil
}
