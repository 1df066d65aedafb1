package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/puyo-bridge/internal/puyo"
	"github.com/sethvargo/go-retry"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Client talks to the game provider over HTTP.
type Client struct {
	base  string
	http  *http.Client
	token string
	log   *slog.Logger

	retries    uint64
	retryDelay time.Duration

	timeout     time.Duration
	pollTimeout time.Duration
}

type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithRetry(retries uint64, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

// WithTimeout bounds every request attempt. Polls are long-held by the
// provider and get their own bound; zero leaves them to the context.
func WithTimeout(request, poll time.Duration) Option {
	return func(c *Client) {
		c.timeout = request
		c.pollTimeout = poll
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimSuffix(baseURL, "/"),
		http:       &http.Client{},
		log:        slog.Default(),
		retries:    3,
		retryDelay: 500 * time.Millisecond,
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type metadata struct {
	Name string `json:"name"`
}

type gameRequest struct {
	ID       string   `json:"id,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Metadata metadata `json:"metadata"`
}

type listResponse struct {
	Games []Game `json:"games"`
}

type addPuyosEvent struct {
	Type   string      `json:"type"`
	Blocks []puyo.Cell `json:"blocks"`
}

// ListOpen returns games of the given mode that are waiting for a player.
func (c *Client) ListOpen(ctx context.Context, mode string) ([]Game, error) {
	q := url.Values{"status": {"open"}, "mode": {mode}}
	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/game/list?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return out.Games, nil
}

func (c *Client) Create(ctx context.Context, name, mode string) (Game, error) {
	var g Game
	req := gameRequest{Mode: mode, Metadata: metadata{Name: name}}
	if err := c.do(ctx, http.MethodPost, "/game/create/", req, &g); err != nil {
		return Game{}, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

func (c *Client) Join(ctx context.Context, id, name string) (Game, error) {
	var g Game
	req := gameRequest{ID: id, Metadata: metadata{Name: name}}
	if err := c.do(ctx, http.MethodPost, "/game/join", req, &g); err != nil {
		return Game{}, fmt.Errorf("join game %s: %w", id, err)
	}
	return g, nil
}

// Poll blocks until the provider has a new state for the game.
func (c *Client) Poll(ctx context.Context, id string) (State, error) {
	var st State
	if err := c.doWithTimeout(ctx, c.pollTimeout, http.MethodGet, "/play/"+url.PathEscape(id)+"?poll=1", nil, &st); err != nil {
		return State{}, fmt.Errorf("poll game %s: %w", id, err)
	}
	return st, nil
}

// Submit sends an addPuyos instruction. A rejected placement is not an error:
// it comes back as Ack.Success == false with a reason. Submissions are never
// retried: a lost reply may hide a placement the provider already applied.
func (c *Client) Submit(ctx context.Context, id string, blocks []puyo.Cell) (Ack, error) {
	var ack Ack
	ev := addPuyosEvent{Type: "addPuyos", Blocks: blocks}
	if err := c.do(ctx, http.MethodPost, "/play/"+url.PathEscape(id), ev, &ack); err != nil {
		return Ack{}, fmt.Errorf("submit to game %s: %w", id, err)
	}
	return ack, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/play/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.doWithTimeout(ctx, c.timeout, method, path, body, out)
}

// idempotent reports whether a failed request may be sent again. POSTs create
// games and place pieces, so they are not.
func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

func (c *Client) doWithTimeout(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, method, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil || !idempotent(method) {
				return err
			}
			c.log.Warn("game api request failed, retrying", "method", method, "path", path, "err", err)
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 && idempotent(method) {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			c.log.Warn("game api server error, retrying", "method", method, "path", path, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet)))
		}
		if resp.StatusCode >= 400 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	})
}

// PlacementAPI is the part of Client a GameSubmitter needs.
type PlacementAPI interface {
	Submit(ctx context.Context, id string, blocks []puyo.Cell) (Ack, error)
}

// GameSubmitter binds a client to one game so placements can be submitted
// without carrying the game id around.
type GameSubmitter struct {
	Client PlacementAPI
	GameID string
}

func (s GameSubmitter) Submit(ctx context.Context, blocks []puyo.Cell) (Ack, error) {
	return s.Client.Submit(ctx, s.GameID, blocks)
}
