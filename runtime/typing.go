package runtime

import (
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing indicator survives without a
// refresh.
const DefaultTypingTTL = 4 * time.Second

// typingKey is the structured (connection, conversation) pair owning one
// timer.
type typingKey struct {
	connectionID   string
	conversationID string
}

type typingEntry struct {
	timer *time.Timer
	gen   uint64
}

// TypingCoordinator guarantees at most one live timer per (connection,
// conversation) pair. A refresh replaces the previous timer; generation
// tokens stop a timer that already fired from clearing an entry it no
// longer owns. onExpire runs outside the coordinator's lock, so callers
// may re-enter from their own serialization domain.
type TypingCoordinator struct {
	mu       sync.Mutex
	ttl      time.Duration
	gen      uint64
	entries  map[typingKey]*typingEntry
	onExpire func(connectionID, conversationID string)
}

func NewTypingCoordinator(ttl time.Duration, onExpire func(connectionID, conversationID string)) *TypingCoordinator {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingCoordinator{
		ttl:      ttl,
		entries:  make(map[typingKey]*typingEntry),
		onExpire: onExpire,
	}
}

// Start arms or debounce-resets the timer for the pair.
func (t *TypingCoordinator) Start(connectionID, conversationID string) {
	key := typingKey{connectionID: connectionID, conversationID: conversationID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.entries[key]; ok {
		prev.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.entries[key] = &typingEntry{
		gen:   gen,
		timer: time.AfterFunc(t.ttl, func() { t.fire(key, gen) }),
	}
}

// Stop cancels the pending timer for the pair, if any.
func (t *TypingCoordinator) Stop(connectionID, conversationID string) {
	key := typingKey{connectionID: connectionID, conversationID: conversationID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}

// StopAll cancels every timer owned by a connection. Used on disconnect.
func (t *TypingCoordinator) StopAll(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.entries {
		if key.connectionID == connectionID {
			entry.timer.Stop()
			delete(t.entries, key)
		}
	}
}

// ActiveTimers reports the number of armed timers.
func (t *TypingCoordinator) ActiveTimers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *TypingCoordinator) fire(key typingKey, gen uint64) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok || entry.gen != gen {
		// A newer timer replaced this one while it was firing.
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	t.onExpire(key.connectionID, key.conversationID)
}
