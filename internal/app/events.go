package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// Outbound event names. One struct per name below; the channel carries
// no untyped key-bags.
const (
	EvMemberConnected    = "player:connected"
	EvMemberDisconnected = "player:disconnected"
	EvCombatStarted      = "combat:started"
	EvCombatEnded        = "combat:ended"
	EvTurnChanged        = "combat:turn-changed"
	EvInitiativeRolled   = "player:initiative-rolled"
	EvInitiativeUpdated  = "combat:initiative-updated"
	EvLogUpdated         = "combat:log-updated"
)

type MemberConnectedEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Member    domain.Member    `json:"member"`
}

type MemberDisconnectedEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	MemberID  domain.MemberID  `json:"memberId"`
}

type CombatStartedEvent struct {
	Type      string             `json:"type"`
	SessionID domain.SessionID   `json:"sessionId"`
	Order     []domain.TurnEntry `json:"order"`
}

type CombatEndedEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
}

type TurnChangedEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Cursor    int              `json:"cursor"`
}

type InitiativeRolledEvent struct {
	Type       string           `json:"type"`
	SessionID  domain.SessionID `json:"sessionId"`
	MemberID   domain.MemberID  `json:"memberId"`
	Name       string           `json:"name"`
	Initiative int              `json:"initiative"`
}

type InitiativeUpdatedEvent struct {
	Type      string             `json:"type"`
	SessionID domain.SessionID   `json:"sessionId"`
	Order     []domain.TurnEntry `json:"order"`
}

type LogUpdatedEvent struct {
	Type      string           `json:"type"`
	SessionID domain.SessionID `json:"sessionId"`
	Message   string           `json:"message"`
}

// encodeEvent marshals an event for the fan-out channel. Marshal failure
// is a programming error on a closed set of types, so it is logged and
// yields an empty frame that TrySend callers skip.
func encodeEvent(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("encode event")
		return nil, false
	}
	return core.Frame(b), true
}
