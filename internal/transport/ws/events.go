package ws

import (
	"encoding/json"

	"echoeditor/internal/model"
)

// Client-to-server event names.
const (
	msgJoinRoom       = "join-room"
	msgCodeChange     = "code-change"
	msgLanguageChange = "language-change"
	msgCursorMove     = "cursor-move"
)

// JoinUser is the optional identity a client supplies on join. Clients
// persist their userId locally so reconnects keep the same identity.
type JoinUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

type joinRoomRequest struct {
	RoomID string   `json:"roomId"`
	User   JoinUser `json:"user"`
}

type codeChangeRequest struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type languageChangeRequest struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type cursorMoveRequest struct {
	Position  model.CursorPosition `json:"position"`
	Selection json.RawMessage      `json:"selection,omitempty"`
}
