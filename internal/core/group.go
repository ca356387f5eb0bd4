package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/domain"
)

// PublishResult reports delivery stats and backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []ChannelID
}

// GroupService is the broadcast group for one session. It owns the set
// of bound connections but never touches transport resources.
type GroupService interface {
	SessionID() domain.SessionID
	MemberCount() int

	Join(cid ChannelID, role Role, conn SignalConnection)
	Leave(cid ChannelID)

	// Broadcast delivers data to every bound connection except from.
	// The publisher applies its own change locally first; it never
	// receives its own publication.
	Broadcast(from ChannelID, data Frame) PublishResult

	// Host returns the host's connection when one is bound.
	Host() (SignalConnection, bool)
}

// groupImpl is a threadsafe in-memory broadcast group.
// It never closes adapter-owned connections.
type groupImpl struct {
	sessionID domain.SessionID
	mu        sync.RWMutex
	byChannel map[ChannelID]memberLink
	hostID    ChannelID
}

type memberLink struct {
	conn SignalConnection
	role Role
}

func NewGroupService(sessionID domain.SessionID) GroupService {
	return &groupImpl{
		sessionID: sessionID,
		byChannel: make(map[ChannelID]memberLink),
	}
}

func (g *groupImpl) SessionID() domain.SessionID { return g.sessionID }

func (g *groupImpl) MemberCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byChannel)
}

func (g *groupImpl) Join(cid ChannelID, role Role, conn SignalConnection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byChannel[cid] = memberLink{conn: conn, role: role}
	if role == RoleHost {
		g.hostID = cid
	}
	log.Info().Str("module", "core.group").Str("session", string(g.sessionID)).Str("channel", string(cid)).Str("role", string(role)).Msg("member joined group")
}

func (g *groupImpl) Leave(cid ChannelID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byChannel, cid)
	if g.hostID == cid {
		g.hostID = ""
	}
	log.Info().Str("module", "core.group").Str("session", string(g.sessionID)).Str("channel", string(cid)).Msg("member left group")
}

func (g *groupImpl) Broadcast(from ChannelID, data Frame) PublishResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := PublishResult{}
	for cid, m := range g.byChannel {
		if cid == from {
			continue
		}
		if err := m.conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.group").Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (g *groupImpl) Host() (SignalConnection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.hostID == "" {
		return nil, false
	}
	m, ok := g.byChannel[g.hostID]
	if !ok {
		return nil, false
	}
	return m.conn, true
}
