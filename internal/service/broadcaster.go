package service

// Server-to-client event names.
const (
	EventSessionData     = "session-data"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventUserListUpdated = "user-list-updated"
	EventCodeReceive     = "code-receive"
	EventLanguageChanged = "language-changed"
	EventUserCursor      = "user-cursor"
	EventError           = "error"
)

// Broadcaster fans events out to live connections. Implemented by ws.Hub.
// Delivery is fire-and-forget; a failed send to one connection never
// affects the others or the caller.
type Broadcaster interface {
	// BroadcastToRoom delivers to every connection in the room except
	// excludeConnID (empty string excludes nobody).
	BroadcastToRoom(roomID, event string, payload interface{}, excludeConnID string)

	// SendToConnection delivers to a single connection.
	SendToConnection(connID, event string, payload interface{})
}
