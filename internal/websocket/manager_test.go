package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestServer starts the manager behind an httptest server and connects one client.
func dialTestServer(t *testing.T, manager *WebSocketManager) (*websocket.Conn, func()) {
	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return ws, func() {
		ws.Close()
		server.Close()
	}
}

func waitForClients(t *testing.T, manager *WebSocketManager, n int) {
	assert.Eventually(t, func() bool { return manager.ClientCount() == n }, time.Second, 10*time.Millisecond)
}

func TestWebSocketManager_BroadcastChatMessage(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	ws, cleanup := dialTestServer(t, manager)
	defer cleanup()
	waitForClients(t, manager, 1)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	err := manager.BroadcastChatMessage(&types.ChatMessage{ID: "m1", UserID: "u1", Content: "hello", CreatedAt: created})
	require.NoError(t, err)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))
	assert.Equal(t, "chat_message", received["type"])
	msg := received["message"].(map[string]interface{})
	assert.Equal(t, "m1", msg["id"])
	assert.Equal(t, "u1", msg["user_id"])
	assert.Equal(t, "hello", msg["content"])
	assert.Equal(t, "2024-03-01T10:00:00Z", msg["created_at"])
}

func TestWebSocketManager_BroadcastLeaderboardUpdate(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	ws, cleanup := dialTestServer(t, manager)
	defer cleanup()
	waitForClients(t, manager, 1)

	name := "Ana"
	page := &leaderboard.Page{
		Entries: []leaderboard.Entry{
			{UserID: "u2", Name: &name, Points: 30, Total: 30},
			{UserID: "u1", Points: 20, Total: 20},
		},
		Page: 1, PageSize: 25, Total: 2, Pages: 1,
	}
	require.NoError(t, manager.BroadcastLeaderboardUpdate(page))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := ws.ReadMessage()
	require.NoError(t, err)

	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(message, &received))
	assert.Equal(t, "leaderboard_update", received["type"])
	assert.Equal(t, float64(2), received["total"])
	assert.Equal(t, float64(25), received["pageSize"])

	entries, ok := received["leaderboard"].([]interface{})
	require.True(t, ok, "Leaderboard should be a slice")
	require.Len(t, entries, 2)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "u2", first["user_id"])
	assert.Equal(t, "Ana", first["name"])
	assert.Equal(t, float64(30), first["points"])
	assert.Equal(t, float64(30), first["total"])
	second := entries[1].(map[string]interface{})
	assert.Nil(t, second["name"])
	assert.Contains(t, second, "email")
}

func TestWebSocketManager_UnregisterOnClose(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	ws, cleanup := dialTestServer(t, manager)
	defer cleanup()
	waitForClients(t, manager, 1)

	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()

	waitForClients(t, manager, 0)
}

func TestWebSocketManager_DropsSlowClient(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	// No writePump drains this queue.
	slow := &client{send: make(chan []byte, 1)}
	manager.register <- slow
	waitForClients(t, manager, 1)

	require.NoError(t, manager.BroadcastChatMessage(&types.ChatMessage{ID: "1"}))
	require.NoError(t, manager.BroadcastChatMessage(&types.ChatMessage{ID: "2"}))

	waitForClients(t, manager, 0)
	_, open := <-slow.send
	assert.True(t, open, "the queued message is still delivered")
	_, open = <-slow.send
	assert.False(t, open, "the queue is closed once the client is dropped")
}

func TestWebSocketManager_Stop(t *testing.T) {
	manager := NewWebSocketManager()
	finished := make(chan struct{})
	go func() {
		manager.Run()
		close(finished)
	}()

	ws, cleanup := dialTestServer(t, manager)
	defer cleanup()
	waitForClients(t, manager, 1)

	manager.Stop()
	manager.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, 0, manager.ClientCount())

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "the server closes the connection")

	err = manager.BroadcastChatMessage(&types.ChatMessage{ID: "late"})
	var wsErr *apperrors.WebSocketError
	assert.ErrorAs(t, err, &wsErr)
}

func TestHandleWebSocketRejectsPlainHTTP(t *testing.T) {
	manager := NewWebSocketManager()
	go manager.Run()
	defer manager.Stop()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	manager.HandleWebSocket(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, manager.ClientCount())
}
