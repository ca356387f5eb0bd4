package domain

import (
	"errors"
	"sort"
)

var (
	ErrCombatActive   = errors.New("combat already active")
	ErrCombatInactive = errors.New("combat not active")
)

// EntryKind distinguishes host-controlled actors from participant ones.
type EntryKind string

const (
	EntryMonster EntryKind = "monster"
	EntryPlayer  EntryKind = "player"
)

// TurnEntry is one item in the initiative order. HP fields are a display
// snapshot and are only set for host-controlled actors.
type TurnEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Initiative int       `json:"initiative"`
	Kind       EntryKind `json:"kind"`
	HP         int       `json:"hp,omitempty"`
	MaxHP      int       `json:"maxHp,omitempty"`
}

// TurnState is the per-session initiative machine: the ordered entries,
// the turn cursor and the combat flag.
//
// The cursor is a position, not a reference: 0-based, wrapping modulo
// len(Order), and a merge that inserts before it shifts whose turn the
// index names. It is meaningful only while combat is active.
type TurnState struct {
	SessionID SessionID   `json:"sessionId"`
	Order     []TurnEntry `json:"order"`
	Cursor    int         `json:"cursor"`
	Active    bool        `json:"active"`
}

// SortOrder sorts entries by descending initiative. The sort is stable,
// so entries with equal scores keep their insertion order.
func (ts *TurnState) SortOrder() {
	sort.SliceStable(ts.Order, func(i, j int) bool {
		return ts.Order[i].Initiative > ts.Order[j].Initiative
	})
}

// Current returns the entry whose turn it is, or false when the order is
// empty or the cursor is out of range.
func (ts *TurnState) Current() (TurnEntry, bool) {
	if len(ts.Order) == 0 || ts.Cursor < 0 || ts.Cursor >= len(ts.Order) {
		return TurnEntry{}, false
	}
	return ts.Order[ts.Cursor], true
}

// LogCap is the number of combat log entries retained per session;
// appending beyond it evicts the oldest line.
const LogCap = 10

// AppendLog pushes message and trims the log to the newest LogCap lines.
func AppendLog(log []string, message string) []string {
	log = append(log, message)
	if len(log) > LogCap {
		log = log[len(log)-LogCap:]
	}
	return log
}
