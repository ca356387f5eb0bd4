package domain

import "github.com/google/uuid"

type MemberID string

// Member is one participant slot within a session. It is created before
// the participant builds a character and is never deleted; disconnects
// only clear the channel binding so a later reconnect can reuse the slot.
type Member struct {
	ID        MemberID   `json:"id"`
	SessionID SessionID  `json:"sessionId"`
	ChannelID string     `json:"channelId,omitempty"`
	Connected bool       `json:"connected"`
	Character *Character `json:"character,omitempty"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(sessionID SessionID) *Member {
	return &Member{
		ID:        MemberID(uuid.NewString()),
		SessionID: sessionID,
	}
}

// Character is the participant-owned actor attached to a member slot.
// Only the fields the host needs to render a join notification.
type Character struct {
	ID       string   `json:"id"`
	MemberID MemberID `json:"memberId"`
	Name     string   `json:"name"`
	HP       int      `json:"hp"`
	MaxHP    int      `json:"maxHp"`
}

func NewCharacter(memberID MemberID, name string, hp, maxHP int) *Character {
	return &Character{
		ID:       uuid.NewString(),
		MemberID: memberID,
		Name:     name,
		HP:       hp,
		MaxHP:    maxHP,
	}
}
