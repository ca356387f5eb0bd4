package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// handleHostJoin binds the connection as the session host. Hosts have
// no member record, so nothing durable changes.
func (ctl *Controller) handleHostJoin(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	if _, err := ctl.Coord.Store.SessionByID(ctx, p.SessionID); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("session", string(p.SessionID)).Msg("host join: unknown session")
		ctl.sendError(c, "session not found")
		return
	}

	ctl.Coord.Registry.BindHost(cid, p.SessionID)
	ctl.Coord.Hub.GetOrCreate(p.SessionID).Join(cid, core.RoleHost, c)
	log.Info().Str("module", "signal").Str("channel", string(cid)).Str("session", string(p.SessionID)).Msg("host joined")
}

// handlePlayerJoin binds the connection as a participant: the member
// record gets the channel id and connected flag before anyone is told.
// A reconnect lands here too and overwrites the stale channel id.
func (ctl *Controller) handlePlayerJoin(ctx context.Context, cid core.ChannelID, c *WsConn, data []byte) {
	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		MemberID  domain.MemberID  `json:"memberId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.MemberID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	member, err := ctl.Coord.Store.MemberByID(ctx, p.MemberID)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("member", string(p.MemberID)).Msg("player join: unknown member")
		ctl.sendError(c, "member not found")
		return
	}
	if member.SessionID != p.SessionID {
		ctl.sendError(c, "member not in session")
		return
	}

	if err := ctl.Coord.Store.SetMemberChannel(ctx, p.MemberID, string(cid), true); err != nil {
		// Not persisted means not joined: the member would look
		// disconnected after a reload, so reject instead of diverging.
		log.Error().Err(err).Str("module", "signal").Str("member", string(p.MemberID)).Msg("player join: persist channel")
		ctl.sendError(c, "join failed")
		return
	}
	member.ChannelID = string(cid)
	member.Connected = true

	ctl.Coord.Registry.BindParticipant(cid, p.SessionID, p.MemberID)
	group := ctl.Coord.Hub.GetOrCreate(p.SessionID)
	group.Join(cid, core.RolePlayer, c)

	ctl.broadcastEvent(cid, p.SessionID, app.MemberConnectedEvent{
		Type:      app.EvMemberConnected,
		SessionID: p.SessionID,
		Member:    *member,
	})
	log.Info().Str("module", "signal").Str("channel", string(cid)).Str("session", string(p.SessionID)).Str("member", string(p.MemberID)).Msg("player joined")
}

// handleDisconnect is the terminal unbind. Participant disconnects are
// mirrored to the store best-effort; a failure there is logged and
// swallowed because the connection is already gone.
func (ctl *Controller) handleDisconnect(ctx context.Context, cid core.ChannelID) {
	sessionID, role, memberID, bound := ctl.Coord.Registry.BindingOf(cid)
	ctl.Coord.Registry.Unbind(cid)
	if !bound {
		return
	}

	if group, ok := ctl.Coord.Hub.Get(sessionID); ok {
		group.Leave(cid)
	}

	if role != core.RolePlayer {
		return
	}
	if err := ctl.Coord.Store.SetMemberChannel(ctx, memberID, "", false); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("member", string(memberID)).Msg("persist disconnect")
	}
	ctl.broadcastEvent(cid, sessionID, app.MemberDisconnectedEvent{
		Type:      app.EvMemberDisconnected,
		SessionID: sessionID,
		MemberID:  memberID,
	})
	log.Info().Str("module", "signal").Str("channel", string(cid)).Str("member", string(memberID)).Msg("player disconnected")
}

func (ctl *Controller) broadcastEvent(from core.ChannelID, sessionID domain.SessionID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal broadcast")
		return
	}
	if group, ok := ctl.Coord.Hub.Get(sessionID); ok {
		group.Broadcast(from, b)
	}
}
