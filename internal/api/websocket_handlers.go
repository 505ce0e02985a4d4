// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/Corphon/AgenticVideoStudio/internal/errors"
	"github.com/Corphon/AgenticVideoStudio/internal/models"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

const wsMaxMessageSize = 16 * 1024

// Message types exchanged over the session socket
const (
	MessageTypeState          = "state"
	MessageTypeRunStarted     = "run_started"
	MessageTypeError          = "error"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeUpdateBriefing = "update_briefing"
)

// ClientMessage is a message sent by the page
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WebSocketHandler pushes session state to connected pages
type WebSocketHandler struct {
	studio  *services.StudioService
	manager *WebSocketManager
	logger  *utils.Logger
}

// NewWebSocketHandler creates the handler and its connection manager
func NewWebSocketHandler(studio *services.StudioService, logger *utils.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		studio:  studio,
		manager: NewWebSocketManager(logger),
		logger:  logger,
	}
}

// Status reports the open connections
func (wh *WebSocketHandler) Status() map[string]interface{} {
	return wh.manager.GetStatus()
}

// Notify sends an event to every page watching the session
func (wh *WebSocketHandler) Notify(sessionID, eventType string, data interface{}) {
	wh.manager.BroadcastToSession(sessionID, map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Shutdown closes every connection
func (wh *WebSocketHandler) Shutdown() {
	wh.manager.Shutdown()
}

// SessionWebSocket streams the snapshots of one session
func (wh *WebSocketHandler) SessionWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := wh.studio.GetSession(sessionID); err != nil {
		NewResponseHelper().NotFound(c, ErrorSessionNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Error("WebSocket upgrade failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	client := newWebSocketClient(conn, sessionID, wh.logger)
	if !wh.manager.Register(client) {
		client.Close()
		return
	}
	defer wh.manager.Unregister(client)

	updates, unsubscribe, err := wh.studio.Subscribe(sessionID)
	if err != nil {
		client.SendError(ErrorSessionNotFound, err.Error())
		client.Close()
		return
	}
	defer unsubscribe()

	go client.writePump()
	go wh.forwardSnapshots(client, updates)

	wh.readPump(client)
}

// forwardSnapshots relays studio snapshots until the client or session goes away
func (wh *WebSocketHandler) forwardSnapshots(client *WebSocketClient, updates <-chan services.SessionSnapshot) {
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				client.Close()
				return
			}
			client.SendMessage(map[string]interface{}{
				"type": MessageTypeState,
				"data": snap,
			})
		case <-client.done:
			return
		}
	}
}

func (wh *WebSocketHandler) readPump(client *WebSocketClient) {
	client.conn.SetReadLimit(wsMaxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.logger.Debug("WebSocket closed unexpectedly", map[string]interface{}{
					"session_id": client.sessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			client.SendError(ErrorBadRequest, "invalid message")
			continue
		}
		wh.handleMessage(client, msg)
	}
}

func (wh *WebSocketHandler) handleMessage(client *WebSocketClient, msg ClientMessage) {
	switch msg.Type {
	case MessageTypePing:
		client.SendMessage(map[string]interface{}{
			"type":      MessageTypePong,
			"timestamp": time.Now().Format(time.RFC3339),
		})

	case MessageTypeUpdateBriefing:
		var input models.BriefingInput
		if err := json.Unmarshal(msg.Data, &input); err != nil {
			client.SendError(ErrorBadRequest, "invalid briefing payload")
			return
		}
		// the new snapshot reaches the client through its subscription
		if _, err := wh.studio.UpdateBriefing(client.sessionID, input); err != nil {
			code := ErrorInternalError
			switch {
			case apperrors.IsValidationError(err):
				code = ErrorBriefingInvalid
			case apperrors.IsNotFoundError(err):
				code = ErrorSessionNotFound
			}
			message := err.Error()
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Details() != "" {
				message += " (" + appErr.Details() + ")"
			}
			client.SendError(code, message)
		}

	default:
		client.SendError(ErrorBadRequest, "unknown message type: "+msg.Type)
	}
}

