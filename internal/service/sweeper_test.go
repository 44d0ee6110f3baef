package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"echoeditor/internal/model"
	"echoeditor/internal/presence"
	"echoeditor/internal/repository"
)

func newSweeperFixture() (*Sweeper, *presence.Registry, *repository.MemoryStore, *fakeBroadcaster) {
	store := repository.NewMemoryStore()
	registry := presence.NewRegistry()
	bc := &fakeBroadcaster{}
	sweeper := NewSweeper(store, registry, time.Minute)
	sweeper.SetBroadcaster(bc)
	return sweeper, registry, store, bc
}

func TestSweep_PrunesGhostUsers(t *testing.T) {
	req := require.New(t)
	sweeper, registry, store, bc := newSweeperFixture()
	ctx := context.Background()

	// Given a room whose persisted list has drifted: alice is live,
	// bob's client crashed without a disconnect
	_, err := store.CreateIfAbsent(ctx, "r1", model.NewSessionDefaults("", ""))
	req.NoError(err)
	_, err = store.AddOrReplaceUser(ctx, "r1", model.PresenceUser{UserID: "u1", Username: "alice"})
	req.NoError(err)
	_, err = store.AddOrReplaceUser(ctx, "r1", model.PresenceUser{UserID: "u2", Username: "bob"})
	req.NoError(err)
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})

	// When a sweep runs
	sweeper.Sweep(ctx)

	// Then the ghost is pruned and the room is told
	session, err := store.Get(ctx, "r1")
	req.NoError(err)
	req.Len(session.ActiveUsers, 1)
	req.Equal("u1", session.ActiveUsers[0].UserID)

	req.Len(bc.broadcasts, 1)
	req.Equal(EventUserListUpdated, bc.broadcasts[0].Event)
	req.Empty(bc.broadcasts[0].Exclude)
	payload := bc.broadcasts[0].Payload.(model.UserListPayload)
	req.Len(payload.Users, 1)
}

func TestSweep_NoDriftNoBroadcast(t *testing.T) {
	req := require.New(t)
	sweeper, registry, store, bc := newSweeperFixture()
	ctx := context.Background()

	_, err := store.CreateIfAbsent(ctx, "r1", model.NewSessionDefaults("", ""))
	req.NoError(err)
	_, err = store.AddOrReplaceUser(ctx, "r1", model.PresenceUser{UserID: "u1"})
	req.NoError(err)
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})

	sweeper.Sweep(ctx)

	req.Empty(bc.broadcasts)
	session, err := store.Get(ctx, "r1")
	req.NoError(err)
	req.Len(session.ActiveUsers, 1)
}

func TestSweep_DropsEmptyRoomsQuietly(t *testing.T) {
	req := require.New(t)
	sweeper, registry, _, bc := newSweeperFixture()

	// Given a room everyone has left
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordLeave("c1")
	req.Contains(registry.Rooms(), "r1")

	sweeper.Sweep(context.Background())

	// Nobody to notify, nothing broadcast
	req.NotContains(registry.Rooms(), "r1")
	req.Empty(bc.broadcasts)
}

func TestSweep_UnknownRoomInRegistryIsSkipped(t *testing.T) {
	req := require.New(t)
	sweeper, registry, _, bc := newSweeperFixture()

	// A live connection for a room the store has never seen (e.g. the
	// store restarted in memory-only mode)
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "lost"})

	sweeper.Sweep(context.Background())

	req.Empty(bc.broadcasts)
	req.Contains(registry.Rooms(), "lost")
}

func TestSweep_MultiTabGhostOnlyPrunedWhenAllTabsGone(t *testing.T) {
	req := require.New(t)
	sweeper, registry, store, bc := newSweeperFixture()
	ctx := context.Background()

	_, err := store.CreateIfAbsent(ctx, "r1", model.NewSessionDefaults("", ""))
	req.NoError(err)
	_, err = store.AddOrReplaceUser(ctx, "r1", model.PresenceUser{UserID: "u1"})
	req.NoError(err)

	// One of the user's two tabs died silently; the other is still live
	registry.RecordJoin(presence.Record{ConnID: "c1", UserID: "u1", RoomID: "r1"})
	registry.RecordJoin(presence.Record{ConnID: "c2", UserID: "u1", RoomID: "r1"})
	registry.RecordLeave("c2")

	sweeper.Sweep(ctx)

	// The user is still live through c1, so nothing changes
	req.Empty(bc.broadcasts)
	session, err := store.Get(ctx, "r1")
	req.NoError(err)
	req.Len(session.ActiveUsers, 1)
}
