// Package domain contains the session entities, just meta-data and
// invariant checks. No transport or storage logic lives here.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxSessionNameLen = 64
	MaxHostNameLen    = 36

	// MaxMembers is the hard capacity of a session. Joins beyond
	// this are rejected with ErrRoomFull.
	MaxMembers = 8
)

var (
	ErrNotFound         = errors.New("not found")
	ErrRoomFull         = errors.New("room is full")
	ErrSessionNameEmpty = errors.New("session name empty")
	ErrNameTooLong      = errors.New("name too long")
)

type SessionID string

// Session is one game in progress, identified out-of-band by its room code.
type Session struct {
	ID       SessionID `json:"id"`
	RoomCode string    `json:"roomCode"`
	Name     string    `json:"name"`
	HostName string    `json:"hostName"`
}

// NewSession validates names and assigns a fresh identifier. The room
// code is assigned by the directory, which owns collision handling.
func NewSession(name, hostName string) (*Session, error) {
	if len(name) == 0 {
		return nil, ErrSessionNameEmpty
	}
	if len(name) > MaxSessionNameLen || len(hostName) > MaxHostNameLen {
		return nil, ErrNameTooLong
	}
	return &Session{
		ID:       SessionID(uuid.NewString()),
		Name:     name,
		HostName: hostName,
	}, nil
}
