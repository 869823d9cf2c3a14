// Timeline rebuilds a client-side picture of conversations from observed
// fan-out events. Handles ordering and receipt/reaction deltas; it never
// emits events itself.
package projection

import (
	"context"
	"sync"

	"chat-broker/domain/event"
)

type Timeline struct {
	mu       sync.Mutex
	Owner    string
	byConv   map[string][]MessageView
	typing   map[string][]string
	welcomed bool
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner:  owner,
		byConv: make(map[string][]MessageView),
		typing: make(map[string][]string),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch payload := e.Payload.(type) {
	case WelcomeView:
		t.welcomed = true
		for _, m := range payload.Messages {
			t.byConv[m.ConversationID] = append(t.byConv[m.ConversationID], m)
		}
	case MessageView:
		t.byConv[payload.ConversationID] = append(t.byConv[payload.ConversationID], payload)
	case TypingView:
		t.typing[payload.ConversationID] = payload.Usernames
	case ReceiptView:
		t.applyReceipt(payload)
	case ReactionView:
		t.applyReaction(payload)
	}
	return nil
}

func (t *Timeline) applyReceipt(r ReceiptView) {
	msgs := t.byConv[r.ConversationID]
	for i := range msgs {
		if msgs[i].ID != r.MessageID {
			continue
		}
		msgs[i].DeliveredTo = appendUnique(msgs[i].DeliveredTo, r.Username)
		if r.Kind == "read" {
			msgs[i].ReadBy = appendUnique(msgs[i].ReadBy, r.Username)
		}
		return
	}
}

func (t *Timeline) applyReaction(r ReactionView) {
	msgs := t.byConv[r.ConversationID]
	for i := range msgs {
		if msgs[i].ID == r.MessageID {
			msgs[i].Reactions = r.Reactions
			return
		}
	}
}

// Messages returns the observed messages of one conversation in arrival
// order.
func (t *Timeline) Messages(conversationID string) []MessageView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]MessageView, len(t.byConv[conversationID]))
	copy(out, t.byConv[conversationID])
	return out
}

// Typing returns the last observed typing set for a conversation.
func (t *Timeline) Typing(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.typing[conversationID]...)
}

// Welcomed reports whether the initial snapshot has been observed.
func (t *Timeline) Welcomed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.welcomed
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
