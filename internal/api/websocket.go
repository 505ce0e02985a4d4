// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsSendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketClient is one live connection watching a session
type WebSocketClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	closed    int32
	lastPing  atomic.Int64
	createdAt time.Time
	logger    *utils.Logger
}

func newWebSocketClient(conn *websocket.Conn, sessionID string, logger *utils.Logger) *WebSocketClient {
	client := &WebSocketClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		logger:    logger,
	}
	client.UpdatePing()
	return client
}

// Close closes the connection once
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
		client.conn.Close()
	}
}

// IsClosed reports whether Close was called
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing records client activity
func (client *WebSocketClient) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired reports whether the client has been silent longer than timeout
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// SendMessage queues a JSON message; it is dropped when the queue is full
func (client *WebSocketClient) SendMessage(message interface{}) error {
	if client.IsClosed() {
		return nil
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.send <- msgBytes:
	case <-client.done:
	default:
		client.logger.Warn("WebSocket send queue full, message dropped", map[string]interface{}{
			"session_id": client.sessionID,
		})
	}
	return nil
}

// SendError sends an error message to the client
func (client *WebSocketClient) SendError(code, message string) {
	client.SendMessage(map[string]interface{}{
		"type":      MessageTypeError,
		"code":      code,
		"error":     message,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// writePump owns every write to the connection
func (client *WebSocketClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.logger.Debug("WebSocket write failed", map[string]interface{}{"error": err.Error()})
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// WebSocketManager tracks every connection per session
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{}
	register    chan *WebSocketClient
	unregister  chan *WebSocketClient
	quit        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	logger      *utils.Logger
}

// NewWebSocketManager creates a manager and starts its loop
func NewWebSocketManager(logger *utils.Logger) *WebSocketManager {
	manager := &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		register:    make(chan *WebSocketClient, 64),
		unregister:  make(chan *WebSocketClient, 64),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
		pingTimeout: wsPongWait * 2,
		logger:      logger,
	}
	go manager.run()
	return manager
}

func (manager *WebSocketManager) run() {
	defer close(manager.stopped)

	cleanupTicker := time.NewTicker(30 * time.Second)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-manager.register:
			manager.registerClient(client)

		case client := <-manager.unregister:
			manager.unregisterClient(client)

		case <-cleanupTicker.C:
			manager.cleanupExpiredConnections()

		case <-manager.quit:
			manager.shutdown()
			return
		}
	}
}

// Register adds a client; it returns false once the manager is shut down
func (manager *WebSocketManager) Register(client *WebSocketClient) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.stopped:
		return false
	}
}

// Unregister removes and closes a client
func (manager *WebSocketManager) Unregister(client *WebSocketClient) {
	select {
	case manager.unregister <- client:
	case <-manager.stopped:
		client.Close()
	}
}

// Shutdown closes every connection and stops the loop
func (manager *WebSocketManager) Shutdown() {
	manager.stopOnce.Do(func() { close(manager.quit) })
	<-manager.stopped
}

func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.sessionID] == nil {
		manager.connections[client.sessionID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.sessionID][client] = struct{}{}

	manager.logger.Info("WebSocket client connected", map[string]interface{}{"session_id": client.sessionID})
}

func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if connections, exists := manager.connections[client.sessionID]; exists {
		delete(connections, client)
		if len(connections) == 0 {
			delete(manager.connections, client.sessionID)
		}
	}
	client.Close()

	manager.logger.Info("WebSocket client disconnected", map[string]interface{}{"session_id": client.sessionID})
}

func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for sessionID, connections := range manager.connections {
		for client := range connections {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(connections, client)
				client.Close()
			}
		}
		if len(connections) == 0 {
			delete(manager.connections, sessionID)
		}
	}
}

func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, connections := range manager.connections {
		for client := range connections {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	manager.logger.Info("WebSocket manager stopped", nil)
}

// GetStatus summarizes open connections per session
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	sessions := make(map[string]interface{})
	total := 0
	for sessionID, connections := range manager.connections {
		active := 0
		var oldest time.Time
		for client := range connections {
			if client.IsClosed() {
				continue
			}
			active++
			if oldest.IsZero() || client.createdAt.Before(oldest) {
				oldest = client.createdAt
			}
		}
		sessions[sessionID] = map[string]interface{}{
			"client_count":    active,
			"connected_since": oldest,
		}
		total += active
	}

	return map[string]interface{}{
		"total_sessions":    len(manager.connections),
		"total_connections": total,
		"sessions":          sessions,
	}
}

// BroadcastToSession sends a message to every client of a session
func (manager *WebSocketManager) BroadcastToSession(sessionID string, message interface{}) {
	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[sessionID]))
	for client := range manager.connections[sessionID] {
		clients = append(clients, client)
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		if err := client.SendMessage(message); err != nil {
			manager.logger.Error("WebSocket broadcast failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}
