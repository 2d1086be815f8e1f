package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// Event is pushed to every websocket client after a session operation.
type Event struct {
	Type      string    `json:"type"` // generated, recentered, rendered or palette
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub fans session events out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	origins []string
	log     zerolog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

func NewHub(log zerolog.Logger, originPatterns ...string) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		origins: originPatterns,
		log:     log,
	}
}

// Broadcast queues ev for every client. A client whose buffer is full is
// dropped.
func (h *Hub) Broadcast(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.Warn().Msg("websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Error().Err(err).Msg("websocket accept failed")
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info().Str("remote_addr", r.RemoteAddr).Int("total_clients", total).Msg("websocket client connected")

	// Clients never send; CloseRead discards input and cancels ctx on close.
	ctx := conn.CloseRead(r.Context())
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		_ = conn.CloseNow()
		h.log.Info().Str("remote_addr", r.RemoteAddr).Msg("websocket client disconnected")
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}
			if err := write(ctx, conn, ev); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
