// Package projection builds read-side views from broker state and
// observed events. Views are wire-ready: stable field names, sorted
// sets, no internal maps.
package projection

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"chat-broker/domain"
)

type RoomView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserView struct {
	Username   string    `json:"username"`
	Status     string    `json:"status"`
	ActiveRoom string    `json:"activeRoom"`
	LastSeen   time.Time `json:"lastSeen"`
}

type MessageView struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversationId"`
	Sender         string              `json:"sender"`
	Body           string              `json:"body"`
	At             time.Time           `json:"at"`
	Attachments    []domain.Attachment `json:"attachments,omitempty"`
	IsSystem       bool                `json:"isSystem,omitempty"`
	IsPrivate      bool                `json:"isPrivate,omitempty"`
	Reactions      map[string][]string `json:"reactions"`
	DeliveredTo    []string            `json:"deliveredTo"`
	ReadBy         []string            `json:"readBy"`
	TempID         string              `json:"tempId,omitempty"`
}

type ThreadView struct {
	ID           string       `json:"id"`
	Participants []string     `json:"participants"`
	LastMessage  *MessageView `json:"lastMessage,omitempty"`
}

type TypingView struct {
	ConversationID string   `json:"conversationId"`
	Usernames      []string `json:"usernames"`
}

// ReceiptView is the delta emitted when one username is added to a
// message's delivered or read set.
type ReceiptView struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Username       string `json:"username"`
	Kind           string `json:"kind"` // "delivered" or "read"
}

type ReactionView struct {
	ConversationID string              `json:"conversationId"`
	MessageID      string              `json:"messageId"`
	Emoji          string              `json:"emoji"`
	Reactions      map[string][]string `json:"reactions"`
}

type MembershipView struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Room     RoomView
}

// WelcomeView is the initial-state snapshot sent right after join.
type WelcomeView struct {
	You          UserView      `json:"you"`
	ActiveRoomID string        `json:"activeRoomId"`
	Rooms        []RoomView    `json:"rooms"`
	Users        []UserView    `json:"users"`
	Messages     []MessageView `json:"messages"`
	Threads      []ThreadView  `json:"threads"`
}

type HistoryView struct {
	ConversationID string        `json:"conversationId"`
	Messages       []MessageView `json:"messages"`
	HasMore        bool          `json:"hasMore"`
	NextCursor     string        `json:"nextCursor,omitempty"`
}

func NewRoomView(r *domain.Room) RoomView {
	return RoomView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		MemberCount: len(r.Members),
		CreatedAt:   r.CreatedAt,
	}
}

func NewUserView(u *domain.User) UserView {
	return UserView{
		Username:   u.Username,
		Status:     string(u.Status),
		ActiveRoom: u.ActiveRoom,
		LastSeen:   u.LastSeen,
	}
}

func NewMessageView(m *domain.Message) MessageView {
	reactions := make(map[string][]string, len(m.Reactions))
	for emoji, holders := range m.Reactions {
		reactions[emoji] = sortedKeys(holders)
	}
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Body:           m.Body,
		At:             m.At,
		Attachments:    m.Attachments,
		IsSystem:       m.IsSystem,
		IsPrivate:      m.IsPrivate,
		Reactions:      reactions,
		DeliveredTo:    sortedKeys(m.DeliveredTo),
		ReadBy:         sortedKeys(m.ReadBy),
		TempID:         m.TempID,
	}
}

func NewMessageViews(msgs []*domain.Message) []MessageView {
	return lo.Map(msgs, func(m *domain.Message, _ int) MessageView {
		return NewMessageView(m)
	})
}

func NewThreadView(t *domain.Thread) ThreadView {
	v := ThreadView{
		ID:           t.ID,
		Participants: []string{t.Participants[0], t.Participants[1]},
	}
	if recent := t.Log.Recent(1); len(recent) == 1 {
		last := NewMessageView(recent[0])
		v.LastMessage = &last
	}
	return v
}

func NewTypingView(conversationID string, typing map[string]struct{}) TypingView {
	return TypingView{
		ConversationID: conversationID,
		Usernames:      sortedKeys(typing),
	}
}

func NewHistoryView(conversationID string, s domain.Slice) HistoryView {
	return HistoryView{
		ConversationID: conversationID,
		Messages:       NewMessageViews(s.Messages),
		HasMore:        s.HasMore,
		NextCursor:     s.NextCursor,
	}
}

// sortedKeys renders a set deterministically for the wire.
func sortedKeys(set map[string]struct{}) []string {
	keys := lo.Keys(set)
	sort.Strings(keys)
	return keys
}
