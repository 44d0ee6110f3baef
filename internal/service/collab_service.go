package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"echoeditor/internal/cache"
	"echoeditor/internal/model"
	"echoeditor/internal/presence"
	"echoeditor/internal/repository"
)

// CollabService coordinates the per-connection protocol: join, edit,
// language change, cursor relay, disconnect. It serializes nothing itself;
// presence-list atomicity comes from the session store, membership
// bookkeeping from the registry.
type CollabService struct {
	store    repository.SessionStore
	registry *presence.Registry
	cache    cache.SessionCache
	bc       Broadcaster
	log      *logrus.Entry
}

// NewCollabService creates the coordinator. cache may be nil.
func NewCollabService(store repository.SessionStore, registry *presence.Registry, sessionCache cache.SessionCache) *CollabService {
	return &CollabService{
		store:    store,
		registry: registry,
		cache:    sessionCache,
		log:      logrus.WithField("component", "collab"),
	}
}

// SetBroadcaster injects the fan-out implementation (the ws hub).
func (s *CollabService) SetBroadcaster(b Broadcaster) {
	s.bc = b
}

// JoinInput carries a join-room request. UserID, Username and Color are
// optional; missing values are resolved once, at join time, so a reconnect
// with a stored userId keeps its identity.
type JoinInput struct {
	ConnID   string
	RoomID   string
	UserID   string
	Username string
	Color    string
}

// Join moves a connection from unjoined to joined. The joiner alone gets
// the full session snapshot; everyone else in the room gets a user-joined
// notification with the refreshed list. On failure the connection stays
// unjoined and only it sees the error.
func (s *CollabService) Join(ctx context.Context, in JoinInput) {
	if in.RoomID == "" {
		s.bc.SendToConnection(in.ConnID, EventError, model.ErrorPayload{Message: "roomId is required"})
		return
	}

	userID := in.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	username := in.Username
	if username == "" {
		username = "guest-" + shortID(in.ConnID)
	}
	color := in.Color
	if color == "" {
		color = randomColor()
	}

	if _, err := s.store.CreateIfAbsent(ctx, in.RoomID, model.NewSessionDefaults("", "")); err != nil {
		s.log.Errorf("join failed for room %s: %v", in.RoomID, err)
		s.bc.SendToConnection(in.ConnID, EventError, model.ErrorPayload{Message: "failed to join session"})
		return
	}

	entry := model.PresenceUser{
		UserID:   userID,
		Username: username,
		Color:    color,
		JoinedAt: time.Now().UTC(),
	}
	session, err := s.store.AddOrReplaceUser(ctx, in.RoomID, entry)
	if err != nil {
		s.log.Errorf("join failed for room %s: %v", in.RoomID, err)
		s.bc.SendToConnection(in.ConnID, EventError, model.ErrorPayload{Message: "failed to join session"})
		return
	}

	s.registry.RecordJoin(presence.Record{
		ConnID:   in.ConnID,
		UserID:   userID,
		Username: username,
		RoomID:   in.RoomID,
		Color:    color,
	})
	s.cacheSession(ctx, session)

	s.bc.SendToConnection(in.ConnID, EventSessionData, model.SessionDataPayload{
		Code:     session.Code,
		Language: session.Language,
		Title:    session.Title,
		Users:    session.ActiveUsers,
	})
	s.bc.BroadcastToRoom(in.RoomID, EventUserJoined, model.UserJoinedPayload{
		UserID:   userID,
		Username: username,
		Color:    color,
		Users:    session.ActiveUsers,
	}, in.ConnID)

	s.log.Infof("user %s (%s) joined room %s", username, userID, in.RoomID)
}

// CodeChange overwrites the room buffer and relays it to everyone except
// the sender. Persistence is best-effort: the broadcast goes out even if
// the write degraded or failed, so collaboration never stalls on storage.
func (s *CollabService) CodeChange(ctx context.Context, connID, code string) {
	rec, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}

	if err := s.store.SetCode(ctx, rec.RoomID, code); err != nil {
		s.log.Warnf("code write failed for room %s: %v", rec.RoomID, err)
	}

	s.bc.BroadcastToRoom(rec.RoomID, EventCodeReceive, model.CodeReceivePayload{
		Code:     code,
		UserID:   rec.UserID,
		Username: rec.Username,
	}, connID)
}

// LanguageChange mirrors CodeChange for the language field.
func (s *CollabService) LanguageChange(ctx context.Context, connID, language string) {
	rec, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}

	if err := s.store.SetLanguage(ctx, rec.RoomID, language); err != nil {
		s.log.Warnf("language write failed for room %s: %v", rec.RoomID, err)
	}

	s.bc.BroadcastToRoom(rec.RoomID, EventLanguageChanged, model.LanguageChangedPayload{
		Language: language,
		UserID:   rec.UserID,
		Username: rec.Username,
	}, connID)
}

// CursorMove relays a cursor/selection update to the rest of the room.
// Nothing is persisted.
func (s *CollabService) CursorMove(ctx context.Context, connID string, position model.CursorPosition, selection json.RawMessage) {
	rec, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}

	s.bc.BroadcastToRoom(rec.RoomID, EventUserCursor, model.CursorPayload{
		UserID:    rec.UserID,
		Username:  rec.Username,
		Color:     rec.Color,
		Position:  position,
		Selection: selection,
	}, connID)
}

// Disconnect handles transport closure. Registry bookkeeping happens
// first, so membership is correct even if the store write below fails. The
// persisted entry is only removed, and user-left only broadcast, when this
// was the user's last live connection in the room.
func (s *CollabService) Disconnect(ctx context.Context, connID string) {
	rec, ok := s.registry.RecordLeave(connID)
	if !ok {
		return
	}

	if s.registry.HasOtherLiveConnection(rec.UserID, rec.RoomID, connID) {
		return
	}

	session, err := s.store.RemoveUser(ctx, rec.RoomID, rec.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("presence removal failed for room %s: %v", rec.RoomID, err)
		}
		return
	}
	s.cacheSession(ctx, session)

	s.bc.BroadcastToRoom(rec.RoomID, EventUserLeft, model.UserLeftPayload{
		UserID:   rec.UserID,
		Username: rec.Username,
		Users:    session.ActiveUsers,
	}, connID)

	s.log.Infof("user %s (%s) left room %s", rec.Username, rec.UserID, rec.RoomID)
}

func (s *CollabService) cacheSession(ctx context.Context, session *model.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.log.Warnf("session cache write failed for room %s: %v", session.RoomID, err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
