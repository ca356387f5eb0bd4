package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tavernkeep/tavern/internal/domain"
)

// SaveTurnState upserts the full turn state for a session. Last write
// wins; serialization of concurrent writers happens above the store.
func (s *Store) SaveTurnState(ctx context.Context, ts *domain.TurnState) error {
	entries := ts.Order
	if entries == nil {
		entries = []domain.TurnEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal turn entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turn_states (session_id, entries, cursor, active) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET entries = excluded.entries, cursor = excluded.cursor, active = excluded.active`,
		string(ts.SessionID), string(raw), ts.Cursor, ts.Active)
	if err != nil {
		return fmt.Errorf("save turn state: %w", err)
	}
	return nil
}

func (s *Store) TurnState(ctx context.Context, sessionID domain.SessionID) (*domain.TurnState, error) {
	var (
		raw    string
		cursor int
		active bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT entries, cursor, active FROM turn_states WHERE session_id = ?`,
		string(sessionID)).Scan(&raw, &cursor, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load turn state: %w", err)
	}

	ts := &domain.TurnState{SessionID: sessionID, Cursor: cursor, Active: active}
	if err := json.Unmarshal([]byte(raw), &ts.Order); err != nil {
		return nil, fmt.Errorf("unmarshal turn entries: %w", err)
	}
	return ts, nil
}

func (s *Store) SaveCombatLog(ctx context.Context, sessionID domain.SessionID, log []string) error {
	if log == nil {
		log = []string{}
	}
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal combat log: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO combat_logs (session_id, entries) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET entries = excluded.entries`,
		string(sessionID), string(raw))
	if err != nil {
		return fmt.Errorf("save combat log: %w", err)
	}
	return nil
}

// CombatLog returns the stored log, empty when the session has none yet.
func (s *Store) CombatLog(ctx context.Context, sessionID domain.SessionID) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT entries FROM combat_logs WHERE session_id = ?`, string(sessionID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load combat log: %w", err)
	}
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal combat log: %w", err)
	}
	return entries, nil
}
