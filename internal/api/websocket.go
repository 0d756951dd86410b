package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypeRefresh = "refresh"
	MsgTypePing    = "ping"

	// Server -> Client messages
	MsgTypeState = "state"
	MsgTypeAck   = "ack"
	MsgTypeError = "error"
	MsgTypePong  = "pong"
)

const (
	sseHeartbeat = 15 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StreamHandlerImpl pushes SyncState over SSE and WebSocket
type StreamHandlerImpl struct {
	engine   SyncEngine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(engine SyncEngine, logger *zap.Logger) StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandlerImpl{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleStateStream streams every published SyncState via SSE until the client goes away
// or the engine stops.
func (h *StreamHandlerImpl) HandleStateStream(c echo.Context) error {
	_, updates, cancel := h.engine.Subscribe()
	defer cancel()

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case state, ok := <-updates:
			if !ok {
				_ = h.sendSSEEvent(c, "end", map[string]string{"reason": "sync engine stopped"})
				return nil
			}
			if err := h.sendSSEEvent(c, MsgTypeState, state); err != nil {
				return nil
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Response(), ": keepalive\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}

func (h *StreamHandlerImpl) sendSSEEvent(c echo.Context, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to encode SSE event", zap.String("event", event), zap.Error(err))
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

// HandleWebSocket upgrades the connection and pushes every published SyncState.
// Clients may send "ping" and "refresh" messages.
func (h *StreamHandlerImpl) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	conn := &wsConn{ws: ws}
	defer ws.Close()

	subID, updates, cancel := h.engine.Subscribe()
	defer cancel()

	log := h.logger.With(zap.String("subscriber", subID))
	log.Debug("websocket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn, log)
	}()

	for {
		select {
		case <-done:
			log.Debug("websocket disconnected")
			return nil

		case state, ok := <-updates:
			if !ok {
				_ = conn.close("sync engine stopped")
				return nil
			}
			if err := conn.send(MsgTypeState, "", state); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return nil
			}
		}
	}
}

func (h *StreamHandlerImpl) readLoop(conn *wsConn, log *zap.Logger) {
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var err error
		switch msg.Type {
		case MsgTypePing:
			err = conn.send(MsgTypePong, msg.ID, nil)
		case MsgTypeRefresh:
			if rerr := h.engine.Refresh(); rerr != nil {
				err = conn.send(MsgTypeError, msg.ID, WSErrorResponse{Message: rerr.Error(), Code: "REFRESH_FAILED"})
			} else {
				err = conn.send(MsgTypeAck, msg.ID, nil)
			}
		default:
			err = conn.send(MsgTypeError, msg.ID, WSErrorResponse{
				Message: fmt.Sprintf("unknown message type: %s", msg.Type),
				Code:    "UNKNOWN_TYPE",
			})
		}
		if err != nil {
			return
		}
	}
}

// wsConn serializes writes; gorilla connections support one concurrent writer.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) send(msgType, id string, payload interface{}) error {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = data
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.ws.WriteJSON(msg)
}

func (w *wsConn) close(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(wsWriteWait))
}
