package repository

import (
	"context"
	"errors"

	"echoeditor/internal/model"
)

// ErrNotFound is returned when a roomId has no session document.
var ErrNotFound = errors.New("session not found")

// SessionStore is the persistence contract for rooms. Presence mutations
// (AddOrReplaceUser, RemoveUser, ReplaceUsers) must be atomic per room so
// concurrent joins and leaves never lose each other's writes. Every
// mutating call bumps lastModified.
type SessionStore interface {
	Get(ctx context.Context, roomID string) (*model.Session, error)
	CreateIfAbsent(ctx context.Context, roomID string, defaults model.SessionDefaults) (*model.Session, error)
	SetCode(ctx context.Context, roomID, code string) error
	SetLanguage(ctx context.Context, roomID, language string) error

	// AddOrReplaceUser removes any entry with the same userId, then appends
	// the new one, and returns the updated session.
	AddOrReplaceUser(ctx context.Context, roomID string, user model.PresenceUser) (*model.Session, error)

	// RemoveUser drops the entry for userID and returns the updated session.
	RemoveUser(ctx context.Context, roomID, userID string) (*model.Session, error)

	// ReplaceUsers overwrites the whole active-user list and returns the
	// updated session.
	ReplaceUsers(ctx context.Context, roomID string, users []model.PresenceUser) (*model.Session, error)
}
