package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"example.com/puyo-bridge/internal/frame"
	"example.com/puyo-bridge/internal/puyo"
	"example.com/puyo-bridge/internal/render"
)

// Hub fans frames out to every connected spectator. Slow spectators lose
// messages instead of holding up the game.
type Hub struct {
	mu      sync.Mutex
	clients map[*ClientConn]struct{}
	last    map[string]Envelope

	width int
	log   *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*ClientConn]struct{}),
		last:    make(map[string]Envelope),
		width:   puyo.DefaultGeometry.Width,
		log:     log.With("component", "monitor"),
	}
}

// SetWidth changes the board width used for drawing frames.
func (h *Hub) SetWidth(width int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width = width
}

// Record implements bridge.Recorder.
func (h *Hub) Record(_ context.Context, gameID string, f frame.Frame, wire string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env := Envelope{Type: TypeFrame, Payload: mustJSON(FramePayload{
		Game: gameID,
		ID:   f.ID,
		Wire: wire,
		Text: render.Frame(f, h.width),
	})}
	h.last[gameID] = env
	h.broadcastLocked(env)
}

// GameOver announces a finished game and forgets its last frame.
func (h *Hub) GameOver(p ResultPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.last, p.Game)
	h.broadcastLocked(Envelope{Type: TypeResult, Payload: mustJSON(p)})
}

// Clients returns the number of connected spectators.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// attach registers cc and greets it with the running games and their
// latest frames.
func (h *Hub) attach(cc *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[cc] = struct{}{}

	games := make([]string, 0, len(h.last))
	for id := range h.last {
		games = append(games, id)
	}
	slices.Sort(games)

	h.sendLocked(cc, Envelope{Type: TypeHello, Payload: mustJSON(HelloPayload{Games: games})})
	for _, id := range games {
		h.sendLocked(cc, h.last[id])
	}
}

func (h *Hub) detach(cc *ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cc]; ok {
		delete(h.clients, cc)
		cc.Close()
	}
}

// closeAll disconnects every spectator.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cc := range h.clients {
		cc.Close()
		delete(h.clients, cc)
	}
}

func (h *Hub) broadcastLocked(env Envelope) {
	for cc := range h.clients {
		h.sendLocked(cc, env)
	}
}

func (h *Hub) sendLocked(cc *ClientConn, env Envelope) {
	b, _ := json.Marshal(env)
	select {
	case cc.send <- b:
	default:
		h.log.Debug("spectator too slow, dropping message", "type", env.Type)
	}
}
