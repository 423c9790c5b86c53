package websocket

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/estudorank/estudorank/internal/errors"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/internal/types"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 16
)

var errStopped = stderrors.New("websocket manager stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client owns one connection. Only its writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type WebSocketManager struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.Mutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Stop is called. A client whose send queue
// is full is dropped rather than allowed to stall the broadcast.
func (manager *WebSocketManager) Run() {
	for {
		select {
		case c := <-manager.register:
			manager.mutex.Lock()
			manager.clients[c] = true
			manager.mutex.Unlock()
		case c := <-manager.unregister:
			manager.mutex.Lock()
			manager.remove(c)
			manager.mutex.Unlock()
		case message := <-manager.broadcast:
			manager.mutex.Lock()
			for c := range manager.clients {
				select {
				case c.send <- message:
				default:
					logger.Warn("Dropping slow websocket client")
					manager.remove(c)
				}
			}
			manager.mutex.Unlock()
		case <-manager.done:
			manager.mutex.Lock()
			for c := range manager.clients {
				manager.remove(c)
			}
			manager.mutex.Unlock()
			return
		}
	}
}

// remove must be called with the mutex held.
func (manager *WebSocketManager) remove(c *client) {
	if _, ok := manager.clients[c]; ok {
		delete(manager.clients, c)
		close(c.send)
	}
}

// Stop ends Run and closes every client. Safe to call more than once.
func (manager *WebSocketManager) Stop() {
	manager.stopOnce.Do(func() { close(manager.done) })
}

func (manager *WebSocketManager) ClientCount() int {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return len(manager.clients)
}

func (manager *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logger.Error("Failed to upgrade connection: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case manager.register <- c:
	case <-manager.done:
		conn.Close()
		return
	}

	go manager.writePump(c)
	go manager.readPump(c)
}

func (manager *WebSocketManager) readPump(c *client) {
	defer func() {
		select {
		case manager.unregister <- c:
		case <-manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Clients only listen; anything they send is discarded.
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Unexpected close error: %v", err)
			}
			break
		}
	}
}

func (manager *WebSocketManager) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Error writing websocket message: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (manager *WebSocketManager) publish(operation string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return &errors.WebSocketError{Operation: operation, Err: err}
	}

	select {
	case manager.broadcast <- data:
		return nil
	case <-manager.done:
		return &errors.WebSocketError{Operation: operation, Err: errStopped}
	}
}

func (manager *WebSocketManager) BroadcastChatMessage(msg *types.ChatMessage) error {
	return manager.publish("broadcast chat message", types.ChatMessageEvent{
		Type:    types.EventChatMessage,
		Message: msg,
	})
}

func (manager *WebSocketManager) BroadcastLeaderboardUpdate(page *leaderboard.Page) error {
	return manager.publish("broadcast leaderboard update", types.NewLeaderboardUpdate(page))
}
