package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Seed rooms that exist for the whole process lifetime.
const (
	RoomGeneral = "general"
	RoomRandom  = "random"
)

// Room is a named broadcast conversation. Members holds connection IDs,
// Typing holds usernames currently typing. Rooms are never destroyed.
type Room struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	CreatedBy   string
	Members     map[string]struct{}
	Typing      map[string]struct{}
	Log         *MessageLog
}

func NewRoom(id, name, description, createdBy string, capacity int) *Room {
	return &Room{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
		Members:     make(map[string]struct{}),
		Typing:      make(map[string]struct{}),
		Log:         NewMessageLog(capacity),
	}
}

func (r *Room) AddMember(connectionID string) bool {
	if _, ok := r.Members[connectionID]; ok {
		return false
	}
	r.Members[connectionID] = struct{}{}
	return true
}

func (r *Room) RemoveMember(connectionID string) bool {
	if _, ok := r.Members[connectionID]; !ok {
		return false
	}
	delete(r.Members, connectionID)
	return true
}

// Slugify normalizes a room name into a stable id: lower-case, runs of
// non-alphanumeric characters collapsed to single hyphens, leading and
// trailing hyphens trimmed. An empty result falls back to a generated id
// so normalization is always collision-free.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "room-" + uuid.New().String()
	}
	return slug
}
