package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/domain"
	brokererrors "chat-broker/errors"
)

func TestNormalizeUsername(t *testing.T) {
	req := require.New(t)

	name, err := domain.NormalizeUsername("  Ada  ")
	req.NoError(err)
	req.Equal("Ada", name)

	_, err = domain.NormalizeUsername("   ")
	req.ErrorIs(err, brokererrors.ErrInvalidUsername)

	_, err = domain.NormalizeUsername(strings.Repeat("a", 25))
	req.ErrorIs(err, brokererrors.ErrInvalidUsername)

	// 24 runes is valid even when it exceeds 24 bytes.
	name, err = domain.NormalizeUsername(strings.Repeat("é", 24))
	req.NoError(err)
	req.Equal(strings.Repeat("é", 24), name)
}

func TestUser_RoomMembership(t *testing.T) {
	req := require.New(t)

	user := domain.NewUser("conn-1", "ada")
	req.Equal(domain.StatusOnline, user.Status)

	user.JoinRoom("general")
	req.True(user.IsMemberOf("general"))

	user.LeaveRoom("general")
	req.False(user.IsMemberOf("general"))
}
