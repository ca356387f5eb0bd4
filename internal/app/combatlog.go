package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// CombatLog is the append-only, capacity-bounded event log per session,
// mirrored to the durable store.
type CombatLog struct {
	store Store
	hub   *core.Hub
}

func NewCombatLog(store Store, hub *core.Hub) *CombatLog {
	return &CombatLog{store: store, hub: hub}
}

// Append pushes message, trims to the newest domain.LogCap lines and
// persists the trimmed log. Recipients already hold the log and append
// locally, so only the new message goes out on the channel; a joining
// member fetches the full log via the state reload instead.
func (l *CombatLog) Append(ctx context.Context, sessionID domain.SessionID, from core.ChannelID, message string) ([]string, error) {
	entries, err := l.store.CombatLog(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load combat log: %w", err)
	}
	entries = domain.AppendLog(entries, message)
	if err := l.store.SaveCombatLog(ctx, sessionID, entries); err != nil {
		return nil, fmt.Errorf("save combat log: %w", err)
	}

	if frame, ok := encodeEvent(LogUpdatedEvent{Type: EvLogUpdated, SessionID: sessionID, Message: message}); ok {
		if group, ok := l.hub.Get(sessionID); ok {
			group.Broadcast(from, frame)
		}
	}
	log.Debug().Str("module", "app.combatlog").Str("session", string(sessionID)).Str("message", message).Msg("log appended")
	return entries, nil
}
