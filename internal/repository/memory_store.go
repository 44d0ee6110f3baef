package repository

import (
	"context"
	"sync"
	"time"

	"echoeditor/internal/model"
)

// MemoryStore is the process-local SessionStore used when MongoDB is
// unreachable. Nothing survives a restart; reconnecting clients repopulate
// it. A single mutex serializes all room mutations, which satisfies the
// per-room atomicity contract.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
	}
}

func (s *MemoryStore) Get(ctx context.Context, roomID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, roomID string, defaults model.SessionDefaults) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[roomID]; ok {
		return cloneSession(session), nil
	}

	now := time.Now().UTC()
	session := &model.Session{
		RoomID:       roomID,
		Title:        defaults.Title,
		Code:         defaults.Code,
		Language:     defaults.Language,
		ActiveUsers:  []model.PresenceUser{},
		CreatedAt:    now,
		LastModified: now,
	}
	s.sessions[roomID] = session
	return cloneSession(session), nil
}

func (s *MemoryStore) SetCode(ctx context.Context, roomID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return ErrNotFound
	}
	session.Code = code
	session.LastModified = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetLanguage(ctx context.Context, roomID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return ErrNotFound
	}
	session.Language = language
	session.LastModified = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AddOrReplaceUser(ctx context.Context, roomID string, user model.PresenceUser) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return nil, ErrNotFound
	}

	users := make([]model.PresenceUser, 0, len(session.ActiveUsers)+1)
	for _, u := range session.ActiveUsers {
		if u.UserID != user.UserID {
			users = append(users, u)
		}
	}
	session.ActiveUsers = append(users, user)
	session.LastModified = time.Now().UTC()
	return cloneSession(session), nil
}

func (s *MemoryStore) RemoveUser(ctx context.Context, roomID, userID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return nil, ErrNotFound
	}

	users := make([]model.PresenceUser, 0, len(session.ActiveUsers))
	for _, u := range session.ActiveUsers {
		if u.UserID != userID {
			users = append(users, u)
		}
	}
	session.ActiveUsers = users
	session.LastModified = time.Now().UTC()
	return cloneSession(session), nil
}

func (s *MemoryStore) ReplaceUsers(ctx context.Context, roomID string, users []model.PresenceUser) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	if users == nil {
		users = []model.PresenceUser{}
	}
	session.ActiveUsers = append([]model.PresenceUser(nil), users...)
	session.LastModified = time.Now().UTC()
	return cloneSession(session), nil
}

// cloneSession copies the document so callers never share the stored slice.
func cloneSession(session *model.Session) *model.Session {
	out := *session
	out.ActiveUsers = append([]model.PresenceUser(nil), session.ActiveUsers...)
	return &out
}
