package model

import "time"

// Defaults applied when a session is created without explicit values.
// They mirror what the editor frontend expects for a fresh room.
const (
	DefaultTitle    = "Untitled Session"
	DefaultLanguage = "javascript"
	DefaultColor    = "#007acc"

	DefaultCode = "// Welcome to Echo Editor!\n// Start typing to collaborate in real-time\n\nconsole.log('Hello, collaborative world!');"
)

// PresenceUser is one entry in a session's active-user list.
// JoinedAt reflects the most recent join, not the first.
type PresenceUser struct {
	UserID   string    `json:"userId" bson:"userId"`
	Username string    `json:"username" bson:"username"`
	Color    string    `json:"color" bson:"color"`
	JoinedAt time.Time `json:"joinedAt" bson:"joinedAt"`
}

// Session is the persisted room document. ActiveUsers is the declared
// presence list; the presence registry holds the live one.
type Session struct {
	RoomID       string         `json:"roomId" bson:"roomId"`
	Title        string         `json:"title" bson:"title"`
	Code         string         `json:"code" bson:"code"`
	Language     string         `json:"language" bson:"language"`
	ActiveUsers  []PresenceUser `json:"activeUsers" bson:"activeUsers"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	LastModified time.Time      `json:"lastModified" bson:"lastModified"`
}

// SessionDefaults seeds a session document on first creation.
type SessionDefaults struct {
	Title    string
	Language string
	Code     string
}

// NewSessionDefaults fills empty fields with the standard defaults.
func NewSessionDefaults(title, language string) SessionDefaults {
	if title == "" {
		title = DefaultTitle
	}
	if language == "" {
		language = DefaultLanguage
	}
	return SessionDefaults{
		Title:    title,
		Language: language,
		Code:     DefaultCode,
	}
}
