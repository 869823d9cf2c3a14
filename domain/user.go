// Package domain contains core concepts of the chat system.
// This file defines User entities and the username rules enforced
// by the identity registry.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"chat-broker/errors"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

const MaxUsernameLength = 24

// User is the live record of one connected participant. ID is the opaque
// connection identifier; Username is unique across all live users.
type User struct {
	ID          string
	Username    string
	Status      UserStatus
	ActiveRoom  string
	MemberRooms map[string]struct{}
	LastSeen    time.Time
}

func NewUser(connectionID, username string) *User {
	return &User{
		ID:          connectionID,
		Username:    username,
		Status:      StatusOnline,
		MemberRooms: make(map[string]struct{}),
		LastSeen:    time.Now().UTC(),
	}
}

// NormalizeUsername trims the raw name and enforces the length rule
// (1 to 24 characters after trimming, counted in runes).
func NormalizeUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength {
		return "", errors.ErrInvalidUsername
	}
	return name, nil
}

func (u *User) JoinRoom(roomID string) {
	u.MemberRooms[roomID] = struct{}{}
}

func (u *User) LeaveRoom(roomID string) {
	delete(u.MemberRooms, roomID)
}

func (u *User) IsMemberOf(roomID string) bool {
	_, ok := u.MemberRooms[roomID]
	return ok
}

func (u *User) Touch() {
	u.LastSeen = time.Now().UTC()
}
