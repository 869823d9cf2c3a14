// Package event defines the outbound fan-out envelope pushed to client
// connections. Payloads are read-side views built by the projection
// package; this package only names the event taxonomy.
package event

import (
	"time"
)

type Type string

const (
	// Welcome carries the initial-state snapshot sent to a connection
	// right after a successful join.
	Welcome Type = "welcome"

	MessagePosted        Type = "message"
	PrivateMessagePosted Type = "private_message"

	UserJoinedRoom Type = "user_joined"
	UserLeftRoom   Type = "user_left"

	RoomDirectory Type = "room_directory"
	UserDirectory Type = "user_directory"

	TypingChanged   Type = "typing"
	ReceiptUpdated  Type = "receipt"
	ReactionUpdated Type = "reaction"
)

type Event struct {
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Payload   any       `json:"payload,omitempty"`
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}
