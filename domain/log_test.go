package domain_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/domain"
)

func seedLog(capacity, count int) (*domain.MessageLog, []*domain.Message) {
	log := domain.NewMessageLog(capacity)
	msgs := make([]*domain.Message, 0, count)
	for i := 0; i < count; i++ {
		m := domain.NewMessage("general", "alice", "conn-1", fmt.Sprintf("message %03d", i), domain.MessageOptions{})
		log.Append(m)
		msgs = append(msgs, m)
	}
	return log, msgs
}

func TestLog_EvictsOldestAtCapacity(t *testing.T) {
	req := require.New(t)

	log, msgs := seedLog(5, 8)

	req.Equal(5, log.Len())
	// The three oldest are gone.
	req.Nil(log.FindByID(msgs[0].ID))
	req.Nil(log.FindByID(msgs[2].ID))
	req.NotNil(log.FindByID(msgs[3].ID))
	req.NotNil(log.FindByID(msgs[7].ID))

	recent := log.Recent(5)
	req.Equal(msgs[3].ID, recent[0].ID)
	req.Equal(msgs[7].ID, recent[4].ID)
}

func TestLog_SliceBefore_PagesBackwardsWithoutGaps(t *testing.T) {
	req := require.New(t)

	log, msgs := seedLog(200, 100)

	var collected []*domain.Message
	cursor := ""
	pages := 0
	for {
		s := log.SliceBefore(cursor, 30)
		collected = append(s.Messages, collected...)
		pages++
		if !s.HasMore {
			req.Empty(s.NextCursor)
			break
		}
		req.Equal(s.Messages[0].ID, s.NextCursor)
		cursor = s.NextCursor
	}

	req.Equal(4, pages)
	req.Len(collected, 100)
	for i, m := range collected {
		req.Equal(msgs[i].ID, m.ID, "message %d out of order or duplicated", i)
	}
}

func TestLog_SliceBefore_EmptyCursorReturnsNewest(t *testing.T) {
	req := require.New(t)

	log, msgs := seedLog(200, 10)

	s := log.SliceBefore("", 3)
	req.Len(s.Messages, 3)
	req.True(s.HasMore)
	req.Equal(msgs[7].ID, s.Messages[0].ID)
	req.Equal(msgs[9].ID, s.Messages[2].ID)
}

func TestLog_SliceBefore_UnknownCursorIsEmpty(t *testing.T) {
	req := require.New(t)

	log, _ := seedLog(200, 10)

	s := log.SliceBefore("no-such-id", 5)
	req.Empty(s.Messages)
	req.False(s.HasMore)
}

func TestLog_SliceBefore_ShortFinalWindow(t *testing.T) {
	req := require.New(t)

	log, msgs := seedLog(200, 7)

	s := log.SliceBefore(msgs[2].ID, 5)
	req.Len(s.Messages, 2)
	req.False(s.HasMore)
	req.Empty(s.NextCursor)
	req.Equal(msgs[0].ID, s.Messages[0].ID)
}

func TestLog_Search_CaseInsensitiveNewestFirst(t *testing.T) {
	req := require.New(t)

	log := domain.NewMessageLog(50)
	log.Append(domain.NewMessage("general", "alice", "conn-1", "Deploy went FINE", domain.MessageOptions{}))
	log.Append(domain.NewMessage("general", "bob", "conn-2", "lunch anyone?", domain.MessageOptions{}))
	log.Append(domain.NewMessage("general", "alice", "conn-1", "redeploy scheduled", domain.MessageOptions{}))

	hits := log.Search("deploy", 10)
	req.Len(hits, 2)
	req.Equal("redeploy scheduled", hits[0].Body)
	req.Equal("Deploy went FINE", hits[1].Body)

	req.Len(log.Search("deploy", 1), 1)
	req.Empty(log.Search("standup", 10))
}
