package core

import (
	"sync"

	"github.com/tavernkeep/tavern/internal/domain"
)

type GroupInfo struct {
	SessionID   domain.SessionID `json:"sessionId"`
	MemberCount int              `json:"memberCount"`
}

// Hub owns every live broadcast group. It is constructed in main and
// injected into the adapters; there is no process-wide singleton.
type Hub struct {
	mu     sync.RWMutex
	groups map[domain.SessionID]GroupService
}

func NewHub() *Hub {
	return &Hub{groups: make(map[domain.SessionID]GroupService)}
}

func (h *Hub) GetOrCreate(sessionID domain.SessionID) GroupService {
	h.mu.RLock()
	group, ok := h.groups[sessionID]
	h.mu.RUnlock()
	if ok {
		return group
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if group, ok = h.groups[sessionID]; ok {
		return group
	}
	group = NewGroupService(sessionID)
	h.groups[sessionID] = group
	return group
}

func (h *Hub) Get(sessionID domain.SessionID) (GroupService, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	group, ok := h.groups[sessionID]
	return group, ok
}

func (h *Hub) List() []GroupInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]GroupInfo, 0, len(h.groups))
	for id, g := range h.groups {
		out = append(out, GroupInfo{SessionID: id, MemberCount: g.MemberCount()})
	}
	return out
}

func (h *Hub) Stop(sessionID domain.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, sessionID)
}
