package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const pingPeriod = 25 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
}

// handleWS streams envelopes to one spectator. Spectators only listen;
// anything they send is discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}

	// writer loop
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					return
				}
			}
		}
	}()

	s.hub.attach(cc)
	s.log.Info("spectator connected", "remote", r.RemoteAddr)

	// reader loop
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.detach(cc)
	s.log.Info("spectator disconnected", "remote", r.RemoteAddr)
}
