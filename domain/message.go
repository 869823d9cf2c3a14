// This file defines Message records and the shared factory that stamps
// ids, timestamps and receipt seeds. Messages are immutable once built,
// except for reactions and receipts which only grow or toggle.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemSender is the reserved author of membership notices.
const SystemSender = "system"

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// Message is one chat event in a room or thread log. Reactions maps an
// emoji to the set of usernames holding it; an emoji key is never kept
// with an empty set. DeliveredTo and ReadBy are append-only.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	SenderID       string
	Body           string
	At             time.Time
	Attachments    []Attachment
	IsSystem       bool
	IsPrivate      bool
	Reactions      map[string]map[string]struct{}
	DeliveredTo    map[string]struct{}
	ReadBy         map[string]struct{}
	TempID         string
}

type MessageOptions struct {
	Attachments []Attachment
	IsSystem    bool
	IsPrivate   bool
	TempID      string
}

// NewMessage stamps a unique id and UTC timestamp, trims the body and
// seeds the receipt sets with the sender. System messages start with an
// empty read set.
func NewMessage(conversationID, sender, senderID, body string, opts MessageOptions) *Message {
	m := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         sender,
		SenderID:       senderID,
		Body:           strings.TrimSpace(body),
		At:             time.Now().UTC(),
		Attachments:    opts.Attachments,
		IsSystem:       opts.IsSystem,
		IsPrivate:      opts.IsPrivate,
		Reactions:      make(map[string]map[string]struct{}),
		DeliveredTo:    make(map[string]struct{}),
		ReadBy:         make(map[string]struct{}),
		TempID:         opts.TempID,
	}
	m.DeliveredTo[sender] = struct{}{}
	if !opts.IsSystem {
		m.ReadBy[sender] = struct{}{}
	}
	return m
}

// NewSystemMessage builds a membership notice for a room.
func NewSystemMessage(conversationID, body string) *Message {
	return NewMessage(conversationID, SystemSender, "", body, MessageOptions{IsSystem: true})
}

// ToggleReaction flips the given user's reaction. It reports whether the
// reaction is now present. Removing the last holder deletes the emoji key.
func (m *Message) ToggleReaction(emoji, username string) bool {
	holders, ok := m.Reactions[emoji]
	if ok {
		if _, held := holders[username]; held {
			delete(holders, username)
			if len(holders) == 0 {
				delete(m.Reactions, emoji)
			}
			return false
		}
		holders[username] = struct{}{}
		return true
	}
	m.Reactions[emoji] = map[string]struct{}{username: {}}
	return true
}

// MarkDelivered records a delivery receipt. Receipts never shrink;
// repeated marks are no-ops and report false.
func (m *Message) MarkDelivered(username string) bool {
	if _, ok := m.DeliveredTo[username]; ok {
		return false
	}
	m.DeliveredTo[username] = struct{}{}
	return true
}

// MarkRead records a read receipt, implying delivery.
func (m *Message) MarkRead(username string) bool {
	m.DeliveredTo[username] = struct{}{}
	if _, ok := m.ReadBy[username]; ok {
		return false
	}
	m.ReadBy[username] = struct{}{}
	return true
}
