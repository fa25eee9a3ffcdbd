// Package stream provides the WebSocket transport for chat sessions.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

// Hub tracks open WebSocket connections per chat session so every tab
// watching a session sees the same turns.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{} // keyed by session ID
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds a connection for a session.
func (h *Hub) Register(ownerID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[sessionID]; !exists {
		h.active[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.active[sessionID][conn] = struct{}{}
	slog.Info("Chat stream registered", "owner", ownerID, "session_id", sessionID)
}

// Unregister removes a connection.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[sessionID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.active, sessionID)
		}
		slog.Info("Chat stream unregistered", "session_id", sessionID)
	}
}

// Count returns the number of connections watching a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[sessionID])
}

// Broadcast sends v to every connection watching sessionID.
func (h *Hub) Broadcast(ctx context.Context, sessionID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal stream event", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[sessionID]))
	for c := range h.active[sessionID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := writeRaw(ctx, c, data); err != nil {
			slog.Debug("Failed to broadcast stream event", "error", err, "session_id", sessionID)
		}
	}
}

// CloseSession terminates every connection watching sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.active[sessionID]
	delete(h.active, sessionID)
	h.mu.Unlock()

	for c := range conns {
		_ = c.Close(websocket.StatusNormalClosure, "session closed")
	}
}

// CloseAll terminates all connections, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.active
	h.active = make(map[string]map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for sid, conns := range all {
		for c := range conns {
			_ = c.Close(websocket.StatusGoingAway, "server shutting down")
		}
		slog.Info("Chat streams closed", "session_id", sid)
	}
}

func writeRaw(ctx context.Context, c *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, data)
}
