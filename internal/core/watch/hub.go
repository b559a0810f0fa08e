package watch

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/collider/internal/core/observability/log"
)

var ErrHubClosed = errors.New("watch: hub closed")

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub is a Sink broadcasting samples as JSON to websocket clients. New
// clients first receive the latest sample of every label.
type Hub struct {
	logger log.Log

	mu      sync.Mutex
	clients map[*client]struct{}
	last    map[string]Sample
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan Sample
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func NewHub(l log.Log) *Hub {
	if l == nil {
		l = log.NewNop()
	}
	return &Hub{
		logger:  l.With(log.String("component", "watch_hub")),
		clients: make(map[*client]struct{}),
		last:    make(map[string]Sample),
	}
}

// Observe queues the sample for every client. Slow clients are dropped
// rather than blocking the graph.
func (h *Hub) Observe(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last[s.Label] = s
	for c := range h.clients {
		select {
		case c.send <- s:
		default:
			h.logger.Warn("dropping slow watch client", log.String("remote", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrHubClosed.Error()), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	labels := slices.Sorted(maps.Keys(h.last))
	c := &client{conn: conn, send: make(chan Sample, sendBuffer+len(labels))}
	for _, label := range labels {
		c.send <- h.last[label]
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("watch client connected", log.String("remote", conn.RemoteAddr().String()))
	go h.readLoop(c)
	h.writeLoop(c)
}

// readLoop discards client messages and unregisters the client on error.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for s := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(s); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects every client. Later samples are ignored.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	return nil
}
