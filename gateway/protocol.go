// Package gateway is the websocket transport in front of the broker.
// It is thin plumbing: frames are decoded into tagged request variants,
// validated, and delegated; every state change happens in the broker.
package gateway

import (
	"encoding/json"

	"chat-broker/domain"
)

// Inbound operation names.
const (
	OpJoin                  = "join"
	OpJoinRoom              = "join_room"
	OpLeaveRoom             = "leave_room"
	OpPostMessage           = "post_message"
	OpPostPrivate           = "post_private"
	OpMarkDelivered         = "mark_delivered"
	OpMarkRead              = "mark_read"
	OpSetTyping             = "set_typing"
	OpSetPrivateTyping      = "set_private_typing"
	OpToggleReaction        = "toggle_reaction"
	OpTogglePrivateReaction = "toggle_private_reaction"
	OpRequestHistory        = "request_history"
	OpSetActiveRoom         = "set_active_room"
)

// Frame is the inbound wire envelope.
type Frame struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response acknowledges one inbound frame. Fire-and-forget operations
// only get a response on failure.
type Response struct {
	For   string     `json:"for"`
	OK    bool       `json:"ok"`
	Error *ErrorBody `json:"error,omitempty"`
	Data  any        `json:"data,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JoinRequest struct {
	Username string `json:"username" validate:"required,max=24"`
}

type JoinRoomRequest struct {
	Room        string `json:"room" validate:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type PostMessageRequest struct {
	RoomID      string              `json:"roomId" validate:"required"`
	Body        string              `json:"body" validate:"required"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	TempID      string              `json:"tempId,omitempty"`
}

type PostPrivateRequest struct {
	To     string `json:"to" validate:"required"`
	Body   string `json:"body" validate:"required"`
	TempID string `json:"tempId,omitempty"`
}

type ReceiptRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type PrivateTypingRequest struct {
	To       string `json:"to" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

type ReactionRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
	Emoji          string `json:"emoji" validate:"required"`
}

type HistoryRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	BeforeID       string `json:"beforeId,omitempty"`
	Limit          int    `json:"limit,omitempty" validate:"min=0,max=100"`
}

type ActiveRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}
