package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// binding is the state of one live connection: Unbound until a join
// event names a session and a role, then Bound until disconnect.
type binding struct {
	SessionID domain.SessionID
	Role      core.Role
	MemberID  domain.MemberID
	Conn      core.SignalConnection
	Cancel    context.CancelFunc
}

// Registry tracks which session and role every connection is bound to.
type Registry struct {
	mu       sync.RWMutex
	bindings map[core.ChannelID]*binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[core.ChannelID]*binding)}
}

// Track registers a freshly upgraded, still unbound connection.
func (r *Registry) Track(cid core.ChannelID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[cid] = &binding{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("channel", string(cid)).Msg("tracking connection")
}

// BindHost transitions cid to Bound(host, sessionID).
func (r *Registry) BindHost(cid core.ChannelID, sessionID domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[cid]
	if !ok {
		return false
	}
	b.SessionID = sessionID
	b.Role = core.RoleHost
	b.MemberID = ""
	log.Info().Str("module", "app.registry").Str("channel", string(cid)).Str("session", string(sessionID)).Msg("bound as host")
	return true
}

// BindParticipant transitions cid to Bound(participant, sessionID, memberID).
func (r *Registry) BindParticipant(cid core.ChannelID, sessionID domain.SessionID, memberID domain.MemberID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[cid]
	if !ok {
		return false
	}
	b.SessionID = sessionID
	b.Role = core.RolePlayer
	b.MemberID = memberID
	log.Info().Str("module", "app.registry").Str("channel", string(cid)).Str("session", string(sessionID)).Str("member", string(memberID)).Msg("bound as participant")
	return true
}

// BindingOf returns the current binding for cid. The bool reports
// whether the connection is bound to a session at all.
func (r *Registry) BindingOf(cid core.ChannelID) (domain.SessionID, core.Role, domain.MemberID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[cid]
	if !ok || b.SessionID == "" {
		return "", "", "", false
	}
	return b.SessionID, b.Role, b.MemberID, true
}

// Unbind removes cid entirely; the terminal transition on disconnect.
func (r *Registry) Unbind(cid core.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, cid)
	log.Info().Str("module", "app.registry").Str("channel", string(cid)).Msg("unbound connection")
}

// Cancel tears down the pumps driving cid, if it is still tracked.
func (r *Registry) Cancel(cid core.ChannelID) bool {
	r.mu.RLock()
	b, ok := r.bindings[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if b.Cancel != nil {
		b.Cancel()
	}
	return true
}
