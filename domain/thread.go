package domain

import (
	"time"
)

// Thread is a two-party private conversation. Its id is order-independent
// in the participants so both sides always resolve to the same thread.
type Thread struct {
	ID           string
	Participants [2]string
	CreatedAt    time.Time
	Typing       map[string]struct{}
	Log          *MessageLog
}

// ThreadKey builds the canonical thread id by sorting the two usernames
// lexicographically and joining them.
func ThreadKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

func NewThread(a, b string, capacity int) *Thread {
	if a > b {
		a, b = b, a
	}
	return &Thread{
		ID:           ThreadKey(a, b),
		Participants: [2]string{a, b},
		CreatedAt:    time.Now().UTC(),
		Typing:       make(map[string]struct{}),
		Log:          NewMessageLog(capacity),
	}
}

func (t *Thread) Has(username string) bool {
	return t.Participants[0] == username || t.Participants[1] == username
}

// Other returns the peer of the given participant.
func (t *Thread) Other(username string) string {
	if t.Participants[0] == username {
		return t.Participants[1]
	}
	return t.Participants[0]
}
