package runtime

import (
	"sync"

	"chat-broker/domain"
	"chat-broker/errors"
)

// Identity maps live connections to user records and enforces global
// username uniqueness. Join and Leave are atomic with respect to each
// other, so a name freed by a disconnect can be claimed immediately but
// never held twice.
type Identity struct {
	mu     sync.RWMutex
	byConn map[string]*domain.User
	byName map[string]*domain.User
}

func NewIdentity() *Identity {
	return &Identity{
		byConn: make(map[string]*domain.User),
		byName: make(map[string]*domain.User),
	}
}

// Join binds a username to a connection. Joining twice from the same
// connection returns the existing record unchanged.
func (i *Identity) Join(connectionID, rawName string) (*domain.User, error) {
	name, err := domain.NormalizeUsername(rawName)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.byConn[connectionID]; ok {
		if existing.Username == name {
			return existing, nil
		}
		return nil, errors.ErrUsernameTaken
	}
	if _, taken := i.byName[name]; taken {
		return nil, errors.ErrUsernameTaken
	}

	user := domain.NewUser(connectionID, name)
	i.byConn[connectionID] = user
	i.byName[name] = user
	return user, nil
}

// Leave removes the user and frees the username.
func (i *Identity) Leave(connectionID string) (*domain.User, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	user, ok := i.byConn[connectionID]
	if !ok {
		return nil, false
	}
	delete(i.byConn, connectionID)
	delete(i.byName, user.Username)
	return user, true
}

func (i *Identity) ByConn(connectionID string) (*domain.User, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	user, ok := i.byConn[connectionID]
	return user, ok
}

func (i *Identity) ByName(username string) (*domain.User, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	user, ok := i.byName[username]
	return user, ok
}

// Users returns a snapshot of all live users.
func (i *Identity) Users() []*domain.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	users := make([]*domain.User, 0, len(i.byConn))
	for _, u := range i.byConn {
		users = append(users, u)
	}
	return users
}

func (i *Identity) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byConn)
}
