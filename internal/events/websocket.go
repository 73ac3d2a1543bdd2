package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/assistant-studio/internal/identity"
	"github.com/ashureev/assistant-studio/internal/metrics"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Message types sent to clients.
const (
	TypeSnapshot     = "snapshot"
	TypeState        = "state"
	TypeNotification = "notification"
	TypePong         = "pong"
)

// snapshotMessage is the first message on every connection.
type snapshotMessage struct {
	Type         string               `json:"type"`
	ClientID     string               `json:"clientId"`
	State        *state.Snapshot      `json:"state"`
	Notification *notify.Notification `json:"notification"`
}

type stateMessage struct {
	Type        string          `json:"type"`
	Slice       state.Slice     `json:"slice"`
	AssistantID string          `json:"assistantId,omitempty"`
	State       *state.Snapshot `json:"state"`
}

// notificationMessage carries a nil notification when the toast went away.
type notificationMessage struct {
	Type         string               `json:"type"`
	Notification *notify.Notification `json:"notification"`
}

// wsMessage is a message received from a client.
type wsMessage struct {
	Type string `json:"type"`
}

// Handler serves the event stream.
type Handler struct {
	store         *state.Store
	notes         *notify.Center
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new event stream handler.
func NewHandler(store *state.Store, notes *notify.Center, hub *Hub, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		store:         store,
		notes:         notes,
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientIDFromContext(r.Context())
	if clientID == "" {
		clientID = r.URL.Query().Get(identity.ClientQueryParam)
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}
	slog.Info("Event stream request", "client_id", clientID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()

	h.hub.Register(clientID, ws)
	defer h.hub.Unregister(clientID, ws)
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before reading the snapshot so no change falls in between.
	changes, unsubState := h.store.Subscribe()
	defer unsubState()
	notes, unsubNotes := h.notes.Subscribe()
	defer unsubNotes()

	first := snapshotMessage{Type: TypeSnapshot, ClientID: clientID, State: h.store.Snapshot()}
	if n, ok := h.notes.Current(); ok {
		first.Notification = &n
	}
	if err := writeJSON(ctx, ws, first); err != nil {
		slog.Debug("Failed to send snapshot", "error", err, "client_id", clientID)
		return
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		h.inputLoop(ctx, ws, clientID)
	}()

	h.outputLoop(ctx, ws, clientID, changes, notes)
	cancel()
	<-readDone
	slog.Info("Event stream ended", "client_id", clientID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, clientID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "client_id", clientID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "client_id", clientID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("Ignoring malformed client message", "client_id", clientID)
			continue
		}

		switch msg.Type {
		case "ping":
			if err := writeJSON(ctx, ws, map[string]string{"type": TypePong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			slog.Debug("Ignoring client message", "type", msg.Type, "client_id", clientID)
		}
	}
}

func (h *Handler) outputLoop(ctx context.Context, ws *websocket.Conn, clientID string, changes <-chan state.Change, notes <-chan notify.Event) {
	for {
		var msg interface{}
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			msg = stateMessage{Type: TypeState, Slice: c.Slice, AssistantID: c.AssistantID, State: c.Snapshot}
		case ev, ok := <-notes:
			if !ok {
				return
			}
			msg = notificationMessage{Type: TypeNotification, Notification: ev.Notification}
		}

		if err := writeJSON(ctx, ws, msg); err != nil {
			if ctx.Err() == nil {
				slog.Debug("WebSocket write error", "error", err, "client_id", clientID)
			}
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
