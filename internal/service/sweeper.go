package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"echoeditor/internal/model"
	"echoeditor/internal/presence"
	"echoeditor/internal/repository"
)

// Sweeper periodically reconciles each room's persisted user list against
// the registry's live connections. Ghost entries left behind by crashed
// clients are pruned within one interval; rooms with no connections left
// are dropped from the registry.
type Sweeper struct {
	store    repository.SessionStore
	registry *presence.Registry
	bc       Broadcaster
	interval time.Duration
	log      *logrus.Entry
}

// NewSweeper creates a sweeper with the given period.
func NewSweeper(store repository.SessionStore, registry *presence.Registry, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		registry: registry,
		interval: interval,
		log:      logrus.WithField("component", "sweeper"),
	}
}

// SetBroadcaster injects the fan-out implementation.
func (s *Sweeper) SetBroadcaster(b Broadcaster) {
	s.bc = b
}

// Run sweeps on a fixed ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infof("sweeper running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep reconciles every room known to the registry once.
func (s *Sweeper) Sweep(ctx context.Context) {
	for roomID, connIDs := range s.registry.Rooms() {
		if len(connIDs) == 0 {
			s.registry.DropRoom(roomID)
			continue
		}
		s.sweepRoom(ctx, roomID)
	}
}

func (s *Sweeper) sweepRoom(ctx context.Context, roomID string) {
	session, err := s.store.Get(ctx, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("sweep read failed for room %s: %v", roomID, err)
		}
		return
	}

	live := s.registry.LiveUserIDsOf(roomID)
	kept := lo.Filter(session.ActiveUsers, func(u model.PresenceUser, _ int) bool {
		return lo.Contains(live, u.UserID)
	})
	removed := len(session.ActiveUsers) - len(kept)
	if removed == 0 {
		return
	}

	session, err = s.store.ReplaceUsers(ctx, roomID, kept)
	if err != nil {
		s.log.Warnf("sweep write failed for room %s: %v", roomID, err)
		return
	}

	s.log.Infof("pruned %d ghost user(s) from room %s", removed, roomID)
	s.bc.BroadcastToRoom(roomID, EventUserListUpdated, model.UserListPayload{
		Users: session.ActiveUsers,
	}, "")
}
