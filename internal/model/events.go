package model

import "encoding/json"

// CursorPosition matches the editor's {lineNumber, column} shape.
type CursorPosition struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

// SessionDataPayload is the unicast join reply.
type SessionDataPayload struct {
	Code     string         `json:"code"`
	Language string         `json:"language"`
	Title    string         `json:"title"`
	Users    []PresenceUser `json:"users"`
}

// UserJoinedPayload is broadcast to everyone except the joiner.
type UserJoinedPayload struct {
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Color    string         `json:"color"`
	Users    []PresenceUser `json:"users"`
}

// UserLeftPayload is broadcast when a user's last connection closes.
type UserLeftPayload struct {
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Users    []PresenceUser `json:"users"`
}

// UserListPayload carries a refreshed presence list (sweeper corrections).
type UserListPayload struct {
	Users []PresenceUser `json:"users"`
}

// CodeReceivePayload carries a full buffer replacement plus editor identity.
type CodeReceivePayload struct {
	Code     string `json:"code"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LanguageChangedPayload mirrors CodeReceivePayload for the language field.
type LanguageChangedPayload struct {
	Language string `json:"language"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// CursorPayload is the ephemeral cursor/selection relay. Selection is
// passed through verbatim; the server never inspects it.
type CursorPayload struct {
	UserID    string          `json:"userId"`
	Username  string          `json:"username"`
	Color     string          `json:"color"`
	Position  CursorPosition  `json:"position"`
	Selection json.RawMessage `json:"selection,omitempty"`
}

// ErrorPayload is unicast to a connection whose request failed.
type ErrorPayload struct {
	Message string `json:"message"`
}
