package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"echoeditor/internal/presence"
)

// Message is the WebSocket envelope format.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one live WebSocket client. Send is drained by the write
// pump; when it is full the hub drops the message rather than block.
type Connection struct {
	ID   string
	Send chan []byte
}

// Hub is the broadcast gateway. It owns the connection table; room
// membership lives in the presence registry, so the two can never
// disagree about who is in a room. Implements service.Broadcaster.
type Hub struct {
	registry *presence.Registry

	mu    sync.RWMutex
	conns map[string]*Connection

	log *logrus.Entry
}

// NewHub creates a hub that resolves room membership via the registry.
func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		registry: registry,
		conns:    make(map[string]*Connection),
		log:      logrus.WithField("component", "hub"),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
}

// Unregister removes a connection and closes its send channel. Safe to
// call once per connection; the handler's read pump owns that guarantee.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.conns[conn.ID]; ok && existing == conn {
		delete(h.conns, conn.ID)
		close(conn.Send)
	}
}

// BroadcastToRoom delivers an event to every connection joined to the
// room, skipping excludeConnID. Fire-and-forget per recipient.
func (h *Hub) BroadcastToRoom(roomID, event string, payload interface{}, excludeConnID string) {
	data, err := marshalMessage(event, payload)
	if err != nil {
		h.log.Warnf("marshal failed for %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range h.registry.ConnectionsOf(roomID) {
		if connID == excludeConnID {
			continue
		}
		if conn, ok := h.conns[connID]; ok {
			h.send(conn, data, event)
		}
	}
}

// SendToConnection delivers an event to a single connection.
func (h *Hub) SendToConnection(connID, event string, payload interface{}) {
	data, err := marshalMessage(event, payload)
	if err != nil {
		h.log.Warnf("marshal failed for %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if conn, ok := h.conns[connID]; ok {
		h.send(conn, data, event)
	}
}

func (h *Hub) send(conn *Connection, data []byte, event string) {
	select {
	case conn.Send <- data:
	default:
		// Slow consumer, drop rather than block the room.
		h.log.Debugf("dropped %s for connection %s", event, conn.ID)
	}
}

func marshalMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: event, Payload: data})
}
