package app

import (
	"context"
	"errors"
	"sync"

	"github.com/tavernkeep/tavern/internal/domain"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	byCode   map[string]domain.SessionID
	members  map[domain.MemberID]domain.Member
	turns    map[domain.SessionID]domain.TurnState
	logs     map[domain.SessionID][]string

	failCreates  int // fail the next n CreateSession calls with ErrCodeTaken
	createCalls  int
	failTurnSave bool
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[domain.SessionID]domain.Session),
		byCode:   make(map[string]domain.SessionID),
		members:  make(map[domain.MemberID]domain.Member),
		turns:    make(map[domain.SessionID]domain.TurnState),
		logs:     make(map[domain.SessionID][]string),
	}
}

func (m *memStore) CreateSession(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreates > 0 {
		m.failCreates--
		return ErrCodeTaken
	}
	if _, ok := m.byCode[s.RoomCode]; ok {
		return ErrCodeTaken
	}
	m.sessions[s.ID] = *s
	m.byCode[s.RoomCode] = s.ID
	return nil
}

func (m *memStore) SessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) SessionByCode(ctx context.Context, code string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s := m.sessions[id]
	return &s, nil
}

func (m *memStore) AddMember(ctx context.Context, member *domain.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, mm := range m.members {
		if mm.SessionID == member.SessionID {
			count++
		}
	}
	if count >= domain.MaxMembers {
		return domain.ErrRoomFull
	}
	m.members[member.ID] = *member
	return nil
}

func (m *memStore) MemberByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.members[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &mm, nil
}

func (m *memStore) Members(ctx context.Context, sessionID domain.SessionID) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Member
	for _, mm := range m.members {
		if mm.SessionID == sessionID {
			out = append(out, mm)
		}
	}
	return out, nil
}

func (m *memStore) SetMemberChannel(ctx context.Context, id domain.MemberID, channelID string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.members[id]
	if !ok {
		return domain.ErrNotFound
	}
	mm.ChannelID = channelID
	mm.Connected = connected
	m.members[id] = mm
	return nil
}

func (m *memStore) CreateCharacter(ctx context.Context, c *domain.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mm, ok := m.members[c.MemberID]
	if !ok {
		return domain.ErrNotFound
	}
	mm.Character = c
	m.members[c.MemberID] = mm
	return nil
}

func (m *memStore) SaveTurnState(ctx context.Context, ts *domain.TurnState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTurnSave {
		return errors.New("disk on fire")
	}
	cp := *ts
	cp.Order = append([]domain.TurnEntry{}, ts.Order...)
	m.turns[ts.SessionID] = cp
	return nil
}

func (m *memStore) TurnState(ctx context.Context, sessionID domain.SessionID) (*domain.TurnState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.turns[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := ts
	cp.Order = append([]domain.TurnEntry{}, ts.Order...)
	return &cp, nil
}

func (m *memStore) SaveCombatLog(ctx context.Context, sessionID domain.SessionID, log []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[sessionID] = append([]string{}, log...)
	return nil
}

func (m *memStore) CombatLog(ctx context.Context, sessionID domain.SessionID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.logs[sessionID]...), nil
}
