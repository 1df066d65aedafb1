// Package monitor lets spectators watch games the bridge is playing over a
// websocket.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	Addr            string
	User            string
	PasswordHash    string // bcrypt; empty disables auth
	TokenSecret     []byte // also admits bearer tokens signed with it
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg Config
	hub *Hub
	log *slog.Logger
	srv *http.Server
}

func NewServer(cfg Config, hub *Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, hub: hub, log: log.With("component", "monitor")}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"status": "ok", "spectators": s.hub.Clients()})
	})
	mux.Handle("/ws", SpectatorAuth(s.cfg.User, s.cfg.PasswordHash, s.cfg.TokenSecret)(http.HandlerFunc(s.handleWS)))
	return mux
}

// Run serves until ctx is done, then shuts down and disconnects spectators.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.log.Info("monitor starting", "addr", s.cfg.Addr)

	g.Go(func() error {
		err := s.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info("monitor shutting down")
		s.hub.closeAll()
		_ = s.srv.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}
