package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// hostSession resolves the caller's binding and enforces that turn
// starts, advances and ends come from the host connection only.
func (ctl *Controller) hostSession(cid core.ChannelID, c *WsConn) (domain.SessionID, bool) {
	sessionID, role, _, ok := ctl.Coord.Registry.BindingOf(cid)
	if !ok {
		ctl.sendError(c, "not joined")
		return "", false
	}
	if role != core.RoleHost {
		ctl.sendError(c, "host only")
		return "", false
	}
	return sessionID, true
}

func (ctl *Controller) handleStartCombat(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, ok := ctl.hostSession(cid, c)
	if !ok {
		return
	}
	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Actors    []app.Actor      `json:"actors"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}

	ts, err := ctl.Coord.Combat.Start(ctx, sessionID, cid, p.Actors)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("start combat")
		ctl.sendError(c, "start combat failed")
		return
	}
	// The host applied the change locally with data it did not have:
	// the server rolled the initiatives. Echo the order back.
	ctl.sendJSON(c, app.CombatStartedEvent{Type: app.EvCombatStarted, SessionID: sessionID, Order: ts.Order})
}

func (ctl *Controller) handleEndCombat(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, ok := ctl.hostSession(cid, c)
	if !ok {
		return
	}
	if err := ctl.Coord.Combat.End(ctx, sessionID, cid); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("end combat")
		ctl.sendError(c, "end combat failed")
	}
}

func (ctl *Controller) handleNextTurn(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, ok := ctl.hostSession(cid, c)
	if !ok {
		return
	}
	ts, err := ctl.Coord.Combat.Advance(ctx, sessionID, cid)
	if err != nil {
		if errors.Is(err, domain.ErrCombatInactive) {
			ctl.sendError(c, "combat not active")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("next turn")
		ctl.sendError(c, "next turn failed")
		return
	}
	ctl.sendJSON(c, app.TurnChangedEvent{Type: app.EvTurnChanged, SessionID: sessionID, Cursor: ts.Cursor})
}

func (ctl *Controller) handleUpdateInitiative(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, ok := ctl.hostSession(cid, c)
	if !ok {
		return
	}
	type payload struct {
		Type      string             `json:"type"`
		SessionID domain.SessionID   `json:"sessionId"`
		Order     []domain.TurnEntry `json:"order"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if _, err := ctl.Coord.Combat.SetOrder(ctx, sessionID, cid, p.Order); err != nil {
		if errors.Is(err, domain.ErrCombatInactive) {
			ctl.sendError(c, "combat not active")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("update initiative")
		ctl.sendError(c, "update initiative failed")
	}
}

// handleRollInitiative is the one write path open to participants: the
// rolled score is merged into the order server-side.
func (ctl *Controller) handleRollInitiative(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, role, memberID, ok := ctl.Coord.Registry.BindingOf(cid)
	if !ok || role != core.RolePlayer {
		ctl.sendError(c, "not joined as player")
		return
	}
	type payload struct {
		Type       string           `json:"type"`
		SessionID  domain.SessionID `json:"sessionId"`
		Name       string           `json:"name"`
		Initiative int              `json:"initiative"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.Name == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	if _, err := ctl.Coord.Combat.MergeInitiative(ctx, sessionID, cid, memberID, p.Name, p.Initiative); err != nil {
		if errors.Is(err, domain.ErrCombatInactive) {
			ctl.sendError(c, "combat not active")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("merge initiative")
		ctl.sendError(c, "roll initiative failed")
	}
}

func (ctl *Controller) handleCombatLog(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	sessionID, ok := ctl.hostSession(cid, c)
	if !ok {
		return
	}
	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Message   string           `json:"message"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	if _, err := ctl.Coord.Logs.Append(ctx, sessionID, cid, p.Message); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("session", string(sessionID)).Msg("combat log")
		ctl.sendError(c, "combat log failed")
	}
}
