package runtime

import (
	"sort"

	"github.com/samber/lo"

	"chat-broker/domain"
	"chat-broker/errors"
	"chat-broker/projection"
)

const (
	HistoryDefaultLimit = 30
	HistoryMaxLimit     = 100
	SearchResultLimit   = 100
)

// Rooms returns the lightweight directory view: id, name, description
// and member count only.
func (b *Broker) Rooms() []projection.RoomView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.roomViewsLocked()
}

// Users returns the live user directory.
func (b *Broker) Users() []projection.UserView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.userViewsLocked()
}

// ThreadsFor lists the threads a username participates in.
func (b *Broker) ThreadsFor(username string) []projection.ThreadView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threadViewsLocked(username)
}

// History pages backwards through a room or thread log. limit defaults
// to 30 and is capped at 100.
func (b *Broker) History(conversationID, beforeID string, limit int) (projection.HistoryView, error) {
	if limit <= 0 {
		limit = HistoryDefaultLimit
	}
	if limit > HistoryMaxLimit {
		limit = HistoryMaxLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	conv, err := b.conversationLocked(conversationID)
	if err != nil {
		return projection.HistoryView{}, err
	}
	return projection.NewHistoryView(conversationID, conv.log.SliceBefore(beforeID, limit)), nil
}

// SearchMessages runs a case-insensitive substring match over one room's
// bodies, or over every room when roomID is empty. Results are newest
// first, capped at 100.
func (b *Broker) SearchMessages(query, roomID string) ([]projection.MessageView, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matches []*domain.Message
	if roomID != "" {
		room, ok := b.rooms[roomID]
		if !ok {
			return nil, errors.ErrRoomNotFound
		}
		matches = room.Log.Search(query, SearchResultLimit)
	} else {
		for _, room := range b.rooms {
			matches = append(matches, room.Log.Search(query, SearchResultLimit)...)
		}
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].At.After(matches[j].At)
		})
		if len(matches) > SearchResultLimit {
			matches = matches[:SearchResultLimit]
		}
	}
	return projection.NewMessageViews(matches), nil
}

// Stats exposes coarse counters for health reporting.
func (b *Broker) Stats() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return map[string]any{
		"rooms":   len(b.rooms),
		"threads": len(b.threads),
		"users":   b.identity.Count(),
		"typing":  b.typing.ActiveTimers(),
	}
}

// --- locked view builders shared with the mutation paths ---

func (b *Broker) roomViewsLocked() []projection.RoomView {
	views := lo.MapToSlice(b.rooms, func(_ string, room *domain.Room) projection.RoomView {
		return projection.NewRoomView(room)
	})
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func (b *Broker) userViewsLocked() []projection.UserView {
	views := lo.Map(b.identity.Users(), func(u *domain.User, _ int) projection.UserView {
		return projection.NewUserView(u)
	})
	sort.Slice(views, func(i, j int) bool { return views[i].Username < views[j].Username })
	return views
}

func (b *Broker) threadViewsLocked(username string) []projection.ThreadView {
	threads := lo.Filter(lo.Values(b.threads), func(t *domain.Thread, _ int) bool {
		return t.Has(username)
	})
	views := lo.Map(threads, func(t *domain.Thread, _ int) projection.ThreadView {
		return projection.NewThreadView(t)
	})
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}
