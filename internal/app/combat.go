package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/core"
	"github.com/tavernkeep/tavern/internal/domain"
)

// Actor is a host-controlled creature eligible for the initiative order.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	HP     int    `json:"hp"`
	MaxHP  int    `json:"maxHp"`
	Hidden bool   `json:"hidden"`
}

// Roller produces one initiative roll. Injected so tests can script it.
type Roller func() int

// Combat runs the turn-order state machine for every session. All
// mutations for one session are serialized behind a per-session mutex:
// merge-then-resort is a read-modify-write against the store, and two
// concurrent merges would otherwise clobber each other's entry.
//
// The cursor tracks a position in the order, not an entry: a merge that
// sorts a new entry before the cursor shifts whose turn the index
// names. That matches the behavior clients already expect.
type Combat struct {
	store Store
	hub   *core.Hub
	logs  *CombatLog
	roll  Roller

	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewCombat(store Store, hub *core.Hub, logs *CombatLog, roll Roller) *Combat {
	return &Combat{
		store: store,
		hub:   hub,
		logs:  logs,
		roll:  roll,
		locks: make(map[domain.SessionID]*sync.Mutex),
	}
}

func (c *Combat) sessionLock(sessionID domain.SessionID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[sessionID] = lock
	}
	return lock
}

// Start begins combat: every visible host actor gets a fresh initiative
// roll, the order is sorted descending (stable) and the cursor resets.
func (c *Combat) Start(ctx context.Context, sessionID domain.SessionID, from core.ChannelID, actors []Actor) (*domain.TurnState, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts := &domain.TurnState{SessionID: sessionID, Active: true}
	for _, a := range actors {
		if a.Hidden {
			continue
		}
		ts.Order = append(ts.Order, domain.TurnEntry{
			ID:         a.ID,
			Name:       a.Name,
			Initiative: c.roll(),
			Kind:       domain.EntryMonster,
			HP:         a.HP,
			MaxHP:      a.MaxHP,
		})
	}
	ts.SortOrder()

	if err := c.store.SaveTurnState(ctx, ts); err != nil {
		return nil, fmt.Errorf("persist turn state: %w", err)
	}
	c.broadcast(sessionID, from, CombatStartedEvent{Type: EvCombatStarted, SessionID: sessionID, Order: ts.Order})
	c.appendLog(ctx, sessionID, from, "Combat has begun!")

	log.Info().Str("module", "app.combat").Str("session", string(sessionID)).Int("entries", len(ts.Order)).Msg("combat started")
	return ts, nil
}

// MergeInitiative folds one participant's rolled initiative into the
// current order. Callable any time between Start and End; an entry
// landing before the cursor's position shifts whose turn that index
// names, and is not retroactively reordered.
func (c *Combat) MergeInitiative(ctx context.Context, sessionID domain.SessionID, from core.ChannelID, memberID domain.MemberID, name string, initiative int) (*domain.TurnState, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts, err := c.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ts.Order = append(ts.Order, domain.TurnEntry{
		ID:         uuid.NewString(),
		Name:       name,
		Initiative: initiative,
		Kind:       domain.EntryPlayer,
	})
	ts.SortOrder()

	if err := c.store.SaveTurnState(ctx, ts); err != nil {
		return nil, fmt.Errorf("persist turn state: %w", err)
	}
	if host, ok := c.hostConn(sessionID); ok {
		if frame, ok := encodeEvent(InitiativeRolledEvent{Type: EvInitiativeRolled, SessionID: sessionID, MemberID: memberID, Name: name, Initiative: initiative}); ok {
			_ = host.TrySend(frame)
		}
	}
	c.broadcast(sessionID, from, InitiativeUpdatedEvent{Type: EvInitiativeUpdated, SessionID: sessionID, Order: ts.Order})

	log.Info().Str("module", "app.combat").Str("session", string(sessionID)).Str("name", name).Int("initiative", initiative).Msg("initiative merged")
	return ts, nil
}

// SetOrder replaces the whole order with a host-edited sequence. The
// cursor is clamped rather than reset so the current position survives
// removals at the tail.
func (c *Combat) SetOrder(ctx context.Context, sessionID domain.SessionID, from core.ChannelID, order []domain.TurnEntry) (*domain.TurnState, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts, err := c.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ts.Order = order
	ts.SortOrder()
	if len(ts.Order) == 0 {
		ts.Cursor = 0
	} else if ts.Cursor >= len(ts.Order) {
		ts.Cursor = len(ts.Order) - 1
	}

	if err := c.store.SaveTurnState(ctx, ts); err != nil {
		return nil, fmt.Errorf("persist turn state: %w", err)
	}
	c.broadcast(sessionID, from, InitiativeUpdatedEvent{Type: EvInitiativeUpdated, SessionID: sessionID, Order: ts.Order})
	return ts, nil
}

// Advance moves the cursor to the next position, wrapping at the end.
func (c *Combat) Advance(ctx context.Context, sessionID domain.SessionID, from core.ChannelID) (*domain.TurnState, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts, err := c.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(ts.Order) == 0 {
		return ts, nil
	}

	ts.Cursor = (ts.Cursor + 1) % len(ts.Order)
	if err := c.store.SaveTurnState(ctx, ts); err != nil {
		return nil, fmt.Errorf("persist turn state: %w", err)
	}
	c.broadcast(sessionID, from, TurnChangedEvent{Type: EvTurnChanged, SessionID: sessionID, Cursor: ts.Cursor})
	if current, ok := ts.Current(); ok {
		c.appendLog(ctx, sessionID, from, fmt.Sprintf("%s's turn!", current.Name))
	}
	return ts, nil
}

// End clears the order and deactivates combat.
func (c *Combat) End(ctx context.Context, sessionID domain.SessionID, from core.ChannelID) error {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ts := &domain.TurnState{SessionID: sessionID}
	if err := c.store.SaveTurnState(ctx, ts); err != nil {
		return fmt.Errorf("persist turn state: %w", err)
	}
	c.broadcast(sessionID, from, CombatEndedEvent{Type: EvCombatEnded, SessionID: sessionID})
	c.appendLog(ctx, sessionID, from, "Combat ended.")

	log.Info().Str("module", "app.combat").Str("session", string(sessionID)).Msg("combat ended")
	return nil
}

func (c *Combat) loadActive(ctx context.Context, sessionID domain.SessionID) (*domain.TurnState, error) {
	ts, err := c.store.TurnState(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCombatInactive
	}
	if err != nil {
		return nil, fmt.Errorf("load turn state: %w", err)
	}
	if !ts.Active {
		return nil, domain.ErrCombatInactive
	}
	return ts, nil
}

func (c *Combat) hostConn(sessionID domain.SessionID) (core.SignalConnection, bool) {
	group, ok := c.hub.Get(sessionID)
	if !ok {
		return nil, false
	}
	return group.Host()
}

// broadcast fans an event out to everyone but the initiator. Delivery
// is at-most-once: a disconnected member recovers via a state reload.
func (c *Combat) broadcast(sessionID domain.SessionID, from core.ChannelID, event any) {
	frame, ok := encodeEvent(event)
	if !ok {
		return
	}
	if group, ok := c.hub.Get(sessionID); ok {
		group.Broadcast(from, frame)
	}
}

// appendLog mirrors a combat line into the bounded log. The turn state
// write already succeeded at this point, so a log persistence failure
// is reported but does not unwind the transition.
func (c *Combat) appendLog(ctx context.Context, sessionID domain.SessionID, from core.ChannelID, message string) {
	if _, err := c.logs.Append(ctx, sessionID, from, message); err != nil {
		log.Warn().Err(err).Str("module", "app.combat").Str("session", string(sessionID)).Msg("append combat log")
	}
}
