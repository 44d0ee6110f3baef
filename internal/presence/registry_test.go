package presence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RecordJoin_OneRoomOneConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given an empty registry
	req.Empty(registry.Rooms())

	// When a connection joins
	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", Username: "alice", RoomID: "r1", Color: "#ff0000"})

	// Then it is visible everywhere
	rec, ok := registry.Lookup("c1")
	req.True(ok)
	req.Equal("u1", rec.UserID)
	req.Equal("r1", rec.RoomID)

	req.ElementsMatch([]string{"c1"}, registry.ConnectionsOf("r1"))
	req.ElementsMatch([]string{"u1"}, registry.LiveUserIDsOf("r1"))
}

func TestRegistry_LiveUserIDs_DedupesMultiTabUsers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given one user on two tabs and another on one
	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(Record{ConnID: "c2", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(Record{ConnID: "c3", UserID: "u2", RoomID: "r1"})

	// Then connections count 3 but distinct users count 2
	req.Len(registry.ConnectionsOf("r1"), 3)
	req.ElementsMatch([]string{"u1", "u2"}, registry.LiveUserIDsOf("r1"))
}

func TestRegistry_HasOtherLiveConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(Record{ConnID: "c2", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(Record{ConnID: "c3", UserID: "u2", RoomID: "r1"})

	// u1 has a second tab, u2 does not
	req.True(registry.HasOtherLiveConnection("u1", "r1", "c1"))
	req.False(registry.HasOtherLiveConnection("u2", "r1", "c3"))
	req.False(registry.HasOtherLiveConnection("u3", "r1", "c1"))
}

func TestRegistry_RecordLeave_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})

	// First leave returns the record
	rec, ok := registry.RecordLeave("c1")
	req.True(ok)
	req.Equal("u1", rec.UserID)

	// Second leave is a no-op
	_, ok = registry.RecordLeave("c1")
	req.False(ok)

	_, ok = registry.Lookup("c1")
	req.False(ok)
	req.Empty(registry.ConnectionsOf("r1"))
}

func TestRegistry_EmptyRoomSurvivesUntilDropped(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordLeave("c1")

	// The membership set lingers empty until the sweeper drops it
	rooms := registry.Rooms()
	req.Contains(rooms, "r1")
	req.Empty(rooms["r1"])

	registry.DropRoom("r1")
	req.NotContains(registry.Rooms(), "r1")
}

func TestRegistry_DropRoom_IgnoresNonEmptyRooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.RecordJoin(Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})

	registry.DropRoom("r1")

	req.Contains(registry.Rooms(), "r1")
}
