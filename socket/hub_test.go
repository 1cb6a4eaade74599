package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal WSMessage JSON")
	return msg
}

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func TestHubRoutesEventsToRooms(t *testing.T) {
	hub, wsURL, _ := startHub(t)

	all, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
	require.NoError(t, err, "Subscriber to all documents failed to connect")
	defer all.Close()

	one, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?docId=2", nil)
	require.NoError(t, err, "Subscriber to document 2 failed to connect")
	defer one.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

	hub.Publish(WSMessage{Type: CreatedType, DocID: 1, Payload: json.RawMessage(`{"id":1}`)})
	hub.Publish(WSMessage{Type: StatusType, DocID: 2, Payload: json.RawMessage(`{"status":"Signed"}`)})

	first := readMessage(t, all)
	assert.Equal(t, CreatedType, first.Type)
	assert.Equal(t, int64(1), first.DocID)
	assert.JSONEq(t, `{"id":1}`, string(first.Payload))

	second := readMessage(t, all)
	assert.Equal(t, StatusType, second.Type)
	assert.Equal(t, int64(2), second.DocID)

	// The filtered subscriber never sees the event for document 1.
	only := readMessage(t, one)
	assert.Equal(t, StatusType, only.Type)
	assert.Equal(t, int64(2), only.DocID)
	assert.JSONEq(t, `{"status":"Signed"}`, string(only.Payload))
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, wsURL, _ := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// Publishing after shutdown is a no-op.
	hub.Publish(WSMessage{Type: DeletedType, DocID: 1})
}

func TestServeWsRejectsBadDocID(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?docId=abc", nil)

	ServeWs(hub, rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
