package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/domain"
)

func TestMessage_SeedsReceiptsWithSender(t *testing.T) {
	req := require.New(t)

	m := domain.NewMessage("general", "alice", "conn-1", "  hello  ", domain.MessageOptions{})

	req.Equal("hello", m.Body)
	req.Contains(m.DeliveredTo, "alice")
	req.Contains(m.ReadBy, "alice")
	req.NotEmpty(m.ID)
	req.False(m.At.IsZero())
}

func TestMessage_SystemNoticeHasNoReadSeed(t *testing.T) {
	req := require.New(t)

	m := domain.NewSystemMessage("general", "alice joined General")

	req.True(m.IsSystem)
	req.Equal(domain.SystemSender, m.Sender)
	req.Contains(m.DeliveredTo, domain.SystemSender)
	req.Empty(m.ReadBy)
}

func TestMessage_ToggleReactionPairIsIdentity(t *testing.T) {
	req := require.New(t)

	m := domain.NewMessage("general", "alice", "conn-1", "hello", domain.MessageOptions{})

	req.True(m.ToggleReaction("👍", "bob"))
	req.Contains(m.Reactions["👍"], "bob")

	req.False(m.ToggleReaction("👍", "bob"))
	// Last holder removed, the emoji key disappears entirely.
	req.NotContains(m.Reactions, "👍")
}

func TestMessage_ToggleReactionIsPerUser(t *testing.T) {
	req := require.New(t)

	m := domain.NewMessage("general", "alice", "conn-1", "hello", domain.MessageOptions{})

	req.True(m.ToggleReaction("🎉", "bob"))
	req.True(m.ToggleReaction("🎉", "carol"))
	req.False(m.ToggleReaction("🎉", "bob"))

	req.Len(m.Reactions["🎉"], 1)
	req.Contains(m.Reactions["🎉"], "carol")
}

func TestMessage_ReceiptsAreMonotonic(t *testing.T) {
	req := require.New(t)

	m := domain.NewMessage("general", "alice", "conn-1", "hello", domain.MessageOptions{})

	req.True(m.MarkDelivered("bob"))
	req.False(m.MarkDelivered("bob"))

	req.True(m.MarkRead("bob"))
	req.False(m.MarkRead("bob"))
	// Read still implies delivered for a user never marked delivered.
	req.True(m.MarkRead("carol"))
	req.Contains(m.DeliveredTo, "carol")
}
