package runtime_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/errors"
	"chat-broker/runtime"
)

func TestIdentity_UsernameIsUniqueWhileHeld(t *testing.T) {
	req := require.New(t)
	identity := runtime.NewIdentity()

	ada, err := identity.Join("conn-1", "Ada")
	req.NoError(err)
	req.Equal("Ada", ada.Username)

	_, err = identity.Join("conn-2", "Ada")
	req.ErrorIs(err, errors.ErrUsernameTaken)

	// Freed on leave, claimable again.
	_, ok := identity.Leave("conn-1")
	req.True(ok)
	_, err = identity.Join("conn-2", "Ada")
	req.NoError(err)
}

func TestIdentity_SameConnectionRejoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	identity := runtime.NewIdentity()

	first, err := identity.Join("conn-1", "Ada")
	req.NoError(err)

	again, err := identity.Join("conn-1", "Ada")
	req.NoError(err)
	req.Same(first, again)

	// Same connection, different name: still a conflict.
	_, err = identity.Join("conn-1", "Grace")
	req.ErrorIs(err, errors.ErrUsernameTaken)
}

func TestIdentity_TrimsAndValidatesNames(t *testing.T) {
	req := require.New(t)
	identity := runtime.NewIdentity()

	user, err := identity.Join("conn-1", "  Ada  ")
	req.NoError(err)
	req.Equal("Ada", user.Username)

	// The trimmed form collides with the stored one.
	_, err = identity.Join("conn-2", "Ada ")
	req.ErrorIs(err, errors.ErrUsernameTaken)

	_, err = identity.Join("conn-3", "   ")
	req.ErrorIs(err, errors.ErrInvalidUsername)
}

func TestIdentity_ConcurrentClaimsYieldOneWinner(t *testing.T) {
	req := require.New(t)
	identity := runtime.NewIdentity()

	const attempts = 32
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = identity.Join(fmt.Sprintf("conn-%d", i), "Ada")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			req.ErrorIs(err, errors.ErrUsernameTaken)
		}
	}
	req.Equal(1, winners)
	req.Equal(1, identity.Count())
}
