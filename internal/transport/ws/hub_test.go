package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"echoeditor/internal/model"
	"echoeditor/internal/presence"
	"echoeditor/internal/service"
)

func recv(t *testing.T, conn *Connection) *Message {
	t.Helper()
	select {
	case data := <-conn.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	default:
		return nil
	}
}

func TestHub_BroadcastToRoom_ExcludesSender(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry()
	hub := NewHub(registry)

	sender := &Connection{ID: "c1", Send: make(chan []byte, 8)}
	peer := &Connection{ID: "c2", Send: make(chan []byte, 8)}
	outsider := &Connection{ID: "c3", Send: make(chan []byte, 8)}
	hub.Register(sender)
	hub.Register(peer)
	hub.Register(outsider)

	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(presence.Record{ConnID: "c2", UserID: "u2", RoomID: "r1"})
	registry.RecordJoin(presence.Record{ConnID: "c3", UserID: "u3", RoomID: "other"})

	hub.BroadcastToRoom("r1", service.EventCodeReceive, model.CodeReceivePayload{Code: "x", UserID: "u1"}, "c1")

	// Only the peer in the same room receives the event
	req.Nil(recv(t, sender))
	req.Nil(recv(t, outsider))

	msg := recv(t, peer)
	req.NotNil(msg)
	req.Equal(service.EventCodeReceive, msg.Type)

	var payload model.CodeReceivePayload
	req.NoError(json.Unmarshal(msg.Payload, &payload))
	req.Equal("x", payload.Code)
	req.Equal("u1", payload.UserID)
}

func TestHub_BroadcastToRoom_EmptyExcludeReachesEveryone(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry()
	hub := NewHub(registry)

	a := &Connection{ID: "c1", Send: make(chan []byte, 8)}
	b := &Connection{ID: "c2", Send: make(chan []byte, 8)}
	hub.Register(a)
	hub.Register(b)
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(presence.Record{ConnID: "c2", UserID: "u2", RoomID: "r1"})

	hub.BroadcastToRoom("r1", service.EventUserListUpdated, model.UserListPayload{}, "")

	req.NotNil(recv(t, a))
	req.NotNil(recv(t, b))
}

func TestHub_SendToConnection_Unicast(t *testing.T) {
	req := require.New(t)
	hub := NewHub(presence.NewRegistry())

	conn := &Connection{ID: "c1", Send: make(chan []byte, 8)}
	hub.Register(conn)

	hub.SendToConnection("c1", service.EventError, model.ErrorPayload{Message: "nope"})

	msg := recv(t, conn)
	req.NotNil(msg)
	req.Equal(service.EventError, msg.Type)

	// Unknown targets are silently ignored
	hub.SendToConnection("ghost", service.EventError, model.ErrorPayload{Message: "nope"})
}

func TestHub_SlowConsumerDoesNotBlockBroadcast(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry()
	hub := NewHub(registry)

	slow := &Connection{ID: "c1", Send: make(chan []byte, 1)}
	healthy := &Connection{ID: "c2", Send: make(chan []byte, 8)}
	hub.Register(slow)
	hub.Register(healthy)
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(presence.Record{ConnID: "c2", UserID: "u2", RoomID: "r1"})

	// Fill the slow consumer's buffer, then keep broadcasting
	hub.BroadcastToRoom("r1", service.EventUserListUpdated, model.UserListPayload{}, "")
	hub.BroadcastToRoom("r1", service.EventUserListUpdated, model.UserListPayload{}, "")
	hub.BroadcastToRoom("r1", service.EventUserListUpdated, model.UserListPayload{}, "")

	// The healthy peer got every message; the slow one kept only what fit
	req.Len(healthy.Send, 3)
	req.Len(slow.Send, 1)
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	req := require.New(t)
	hub := NewHub(presence.NewRegistry())

	conn := &Connection{ID: "c1", Send: make(chan []byte, 1)}
	hub.Register(conn)

	hub.Unregister(conn)
	hub.Unregister(conn) // second call must not panic on the closed channel

	_, open := <-conn.Send
	req.False(open)
}
