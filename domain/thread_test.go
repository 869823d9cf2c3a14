package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/domain"
)

func TestThreadKey_IsOrderIndependent(t *testing.T) {
	req := require.New(t)

	req.Equal(domain.ThreadKey("alice", "bob"), domain.ThreadKey("bob", "alice"))
	req.Equal("alice:bob", domain.ThreadKey("bob", "alice"))
}

func TestThread_ParticipantsAndPeer(t *testing.T) {
	req := require.New(t)

	thread := domain.NewThread("zoe", "alice", 10)

	req.Equal("alice:zoe", thread.ID)
	req.True(thread.Has("alice"))
	req.True(thread.Has("zoe"))
	req.False(thread.Has("bob"))

	req.Equal("zoe", thread.Other("alice"))
	req.Equal("alice", thread.Other("zoe"))
}
