// Package events streams state and notification changes to browsers over
// WebSocket.
package events

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Hub tracks the active event connection of each client.
type Hub struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]*websocket.Conn),
	}
}

// Get returns the active connection for a client.
func (h *Hub) Get(clientID string) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active[clientID]
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Register makes conn the active connection for clientID. A previous
// connection for the same client is closed.
func (h *Hub) Register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	existing := h.active[clientID]
	h.active[clientID] = conn
	h.mu.Unlock()

	if existing != nil && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
		slog.Info("Event stream replaced", "client_id", clientID)
	}
	slog.Info("Event stream registered", "client_id", clientID)
}

// Unregister removes conn if it is still the active connection for clientID.
func (h *Hub) Unregister(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[clientID]; ok && current == conn {
		delete(h.active, clientID)
		slog.Info("Event stream unregistered", "client_id", clientID)
	}
}

// CloseAll closes every active connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.active
	h.active = make(map[string]*websocket.Conn)
	h.mu.Unlock()

	for id, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		slog.Info("Event stream closed", "client_id", id)
	}
}
