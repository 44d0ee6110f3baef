package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"echoeditor/internal/model"
	"echoeditor/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // full buffers are retransmitted on every edit

	// Bound on a single store round-trip so one slow write cannot stall
	// a connection's event handling forever.
	opTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler upgrades HTTP requests and pumps events between the socket and
// the collaboration service.
type Handler struct {
	hub    *Hub
	collab *service.CollabService
	log    *logrus.Entry
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, collab *service.CollabService) *Handler {
	return &Handler{
		hub:    hub,
		collab: collab,
		log:    logrus.WithField("component", "ws"),
	}
}

// ServeWS handles GET /v1/ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade failed: %v", err)
		return
	}

	conn := &Connection{
		ID:   uuid.NewString(),
		Send: make(chan []byte, 256),
	}
	h.hub.Register(conn)
	h.log.Infof("connection %s opened", conn.ID)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.disconnect(conn)
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnf("read error on %s: %v", conn.ID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debugf("malformed message on %s: %v", conn.ID, err)
			continue
		}
		h.dispatch(conn, &msg)
	}
}

func (h *Handler) dispatch(conn *Connection, msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch msg.Type {
	case msgJoinRoom:
		var req joinRoomRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			h.hub.SendToConnection(conn.ID, service.EventError, model.ErrorPayload{Message: "invalid join payload"})
			return
		}
		h.collab.Join(ctx, service.JoinInput{
			ConnID:   conn.ID,
			RoomID:   req.RoomID,
			UserID:   req.User.UserID,
			Username: req.User.Username,
			Color:    req.User.Color,
		})

	case msgCodeChange:
		var req codeChangeRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return
		}
		h.collab.CodeChange(ctx, conn.ID, req.Code)

	case msgLanguageChange:
		var req languageChangeRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return
		}
		h.collab.LanguageChange(ctx, conn.ID, req.Language)

	case msgCursorMove:
		var req cursorMoveRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return
		}
		h.collab.CursorMove(ctx, conn.ID, req.Position, req.Selection)

	default:
		h.log.Debugf("unknown message type %q on %s", msg.Type, conn.ID)
	}
}

func (h *Handler) disconnect(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	h.collab.Disconnect(ctx, conn.ID)
	h.log.Infof("connection %s closed", conn.ID)
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
