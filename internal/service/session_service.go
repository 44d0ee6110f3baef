package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"echoeditor/internal/cache"
	"echoeditor/internal/model"
	"echoeditor/internal/repository"
)

// SessionService provisions rooms and serves lookups. Room ids are opaque
// UUIDs and never reused.
type SessionService struct {
	store repository.SessionStore
	cache cache.SessionCache
	log   *logrus.Entry
}

// NewSessionService creates the provisioning service. cache may be nil.
func NewSessionService(store repository.SessionStore, sessionCache cache.SessionCache) *SessionService {
	return &SessionService{
		store: store,
		cache: sessionCache,
		log:   logrus.WithField("component", "sessions"),
	}
}

// Create mints a fresh roomId and seeds the session with defaults.
func (s *SessionService) Create(ctx context.Context, title, language string) (*model.Session, error) {
	roomID := uuid.NewString()
	session, err := s.store.CreateIfAbsent(ctx, roomID, model.NewSessionDefaults(title, language))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, session); err != nil {
			s.log.Warnf("session cache write failed for room %s: %v", roomID, err)
		}
	}

	s.log.Infof("created session %s (%q, %s)", roomID, session.Title, session.Language)
	return session, nil
}

// Get returns the session for roomID, preferring the cache.
// Returns repository.ErrNotFound when the room does not exist.
func (s *SessionService) Get(ctx context.Context, roomID string) (*model.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, roomID)
		if err != nil {
			s.log.Warnf("session cache read failed for room %s: %v", roomID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, session); err != nil {
			s.log.Warnf("session cache write failed for room %s: %v", roomID, err)
		}
	}
	return session, nil
}
