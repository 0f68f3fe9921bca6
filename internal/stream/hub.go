// Package stream broadcasts path snapshots to WebSocket subscribers.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/pathrecorder/pkg/core"
)

// ErrHubClosed is returned by Publish after Close.
var ErrHubClosed = errors.New("stream hub closed")

// Hub fans encoded paths out to every connected subscriber. Slow subscribers
// are disconnected rather than waited on. New subscribers receive the most
// recent frame straight away.
type Hub struct {
	upgrader ws.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, h.logger)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close(ws.CloseGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send(h.last)
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("Subscriber connected", "remote", r.RemoteAddr, "clients", n)

	remove := func() { h.remove(c, ws.CloseNormalClosure, "") }
	go c.writeLoop(remove)
	go c.readLoop(remove)
}

// Publish encodes p once and queues it for every subscriber.
func (h *Hub) Publish(_ context.Context, p core.Path) error {
	data, err := encodeFrame(p)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.last = data
	var slow []*client
	for c := range h.clients {
		if !c.send(data) {
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow subscriber")
		h.remove(c, ws.ClosePolicyViolation, "too slow")
	}
	return nil
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber. Publish fails afterwards.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close(ws.CloseGoingAway, "shutting down")
	}
	return nil
}

func (h *Hub) remove(c *client, code int, reason string) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close(code, reason)
}
