package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/assistant-studio/internal/domain"
	"github.com/ashureev/assistant-studio/internal/notify"
	"github.com/ashureev/assistant-studio/internal/state"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamFixture struct {
	store *state.Store
	notes *notify.Center
	hub   *Hub
	url   string
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	f := &streamFixture{
		store: state.New(domain.SeedAssistants(), domain.ThemeLight, nil),
		notes: notify.New(time.Minute),
		hub:   NewHub(),
	}
	srv := httptest.NewServer(NewHandler(f.store, f.notes, f.hub, "", true))
	t.Cleanup(func() {
		f.hub.CloseAll()
		srv.Close()
		f.notes.Close()
		f.store.Close()
	})
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func (f *streamFixture) dial(t *testing.T, clientID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, f.url+"?client="+clientID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func typeOf(t *testing.T, msg map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(msg["type"], &typ))
	return typ
}

func TestStreamStartsWithSnapshot(t *testing.T) {
	f := newStreamFixture(t)
	f.notes.Success("hello")

	conn := f.dial(t, "tab-1")
	msg := read(t, conn)
	require.Equal(t, TypeSnapshot, typeOf(t, msg))

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(msg["state"], &snap))
	assert.Len(t, snap.Assistants, 2)

	var n notify.Notification
	require.NoError(t, json.Unmarshal(msg["notification"], &n))
	assert.Equal(t, "hello", n.Message)
}

func TestStreamForwardsStateChanges(t *testing.T) {
	f := newStreamFixture(t)
	conn := f.dial(t, "tab-1")
	require.Equal(t, TypeSnapshot, typeOf(t, read(t, conn)))

	f.store.OpenModal("2")

	msg := read(t, conn)
	require.Equal(t, TypeState, typeOf(t, msg))
	var slice state.Slice
	require.NoError(t, json.Unmarshal(msg["slice"], &slice))
	assert.Equal(t, state.SliceModal, slice)

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(msg["state"], &snap))
	assert.True(t, snap.ModalOpen)
	assert.Equal(t, "2", snap.EditingID)
}

func TestStreamForwardsNotifications(t *testing.T) {
	f := newStreamFixture(t)
	conn := f.dial(t, "tab-1")
	read(t, conn)

	shown := f.notes.Error("boom")
	msg := read(t, conn)
	require.Equal(t, TypeNotification, typeOf(t, msg))
	var n notify.Notification
	require.NoError(t, json.Unmarshal(msg["notification"], &n))
	assert.Equal(t, shown.ID, n.ID)
	assert.Equal(t, notify.KindError, n.Kind)

	f.notes.Dismiss(shown.ID)
	msg = read(t, conn)
	require.Equal(t, TypeNotification, typeOf(t, msg))
	assert.Equal(t, "null", string(msg["notification"]))
}

func TestStreamAnswersPing(t *testing.T) {
	f := newStreamFixture(t)
	conn := f.dial(t, "tab-1")
	read(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))

	assert.Equal(t, TypePong, typeOf(t, read(t, conn)))
}

func TestStreamReplacesConnectionForSameClient(t *testing.T) {
	f := newStreamFixture(t)
	first := f.dial(t, "tab-1")
	read(t, first)

	second := f.dial(t, "tab-1")
	read(t, second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _, err := first.Read(ctx)
	require.Error(t, err)

	assert.Eventually(t, func() bool { return f.hub.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.store.AddAssistant(domain.Assistant{ID: "x", Name: "Bot x"})
	assert.Equal(t, TypeState, typeOf(t, read(t, second)))
}

func TestHubUnregisterIgnoresStaleConnection(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	hub.Register("a", conn1)
	hub.Register("b", conn2)
	hub.Unregister("b", conn1)

	assert.Same(t, conn2, hub.Get("b"))
	assert.Equal(t, 2, hub.Len())

	hub.Unregister("a", conn1)
	assert.Nil(t, hub.Get("a"))
	assert.Equal(t, 1, hub.Len())
}
