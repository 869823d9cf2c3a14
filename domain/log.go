package domain

import (
	"strings"
)

// DefaultLogCapacity bounds each conversation log; oldest entries are
// evicted first.
const DefaultLogCapacity = 250

// MessageLog is the bounded, append-only ordered sequence of messages for
// one room or one thread. Ordering is arrival order and is never rewound.
type MessageLog struct {
	capacity int
	messages []*Message
}

func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &MessageLog{capacity: capacity}
}

// Append adds a message at the tail and trims from the head while the
// log exceeds its capacity.
func (l *MessageLog) Append(m *Message) {
	l.messages = append(l.messages, m)
	if excess := len(l.messages) - l.capacity; excess > 0 {
		l.messages = l.messages[excess:]
	}
}

func (l *MessageLog) Len() int {
	return len(l.messages)
}

func (l *MessageLog) Capacity() int {
	return l.capacity
}

// FindByID scans for a message. Linear, acceptable at log scale.
func (l *MessageLog) FindByID(id string) *Message {
	for _, m := range l.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Slice is one backward pagination window. NextCursor is the id of the
// oldest message in the window: passing it back as beforeID yields the
// immediately preceding window with no gap or duplicate. Empty when the
// head has been reached.
type Slice struct {
	Messages   []*Message
	HasMore    bool
	NextCursor string
}

// SliceBefore returns up to limit messages strictly preceding beforeID,
// or the most recent limit messages when beforeID is empty. An unknown
// beforeID yields an empty window.
func (l *MessageLog) SliceBefore(beforeID string, limit int) Slice {
	end := len(l.messages)
	if beforeID != "" {
		end = 0
		for i, m := range l.messages {
			if m.ID == beforeID {
				end = i
				break
			}
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	window := make([]*Message, end-start)
	copy(window, l.messages[start:end])

	s := Slice{Messages: window, HasMore: start > 0}
	if s.HasMore && len(window) > 0 {
		s.NextCursor = window[0].ID
	}
	return s
}

// Recent returns the newest n messages in arrival order.
func (l *MessageLog) Recent(n int) []*Message {
	return l.SliceBefore("", n).Messages
}

// Search collects messages whose body contains the query, case
// insensitively, newest first, up to limit.
func (l *MessageLog) Search(query string, limit int) []*Message {
	needle := strings.ToLower(query)
	var out []*Message
	for i := len(l.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.Contains(strings.ToLower(l.messages[i].Body), needle) {
			out = append(out, l.messages[i])
		}
	}
	return out
}
