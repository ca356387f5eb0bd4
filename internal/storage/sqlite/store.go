// Package sqlite persists sessions, members and combat state in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/domain"
)

// Store implements app.Store on a single SQLite handle.
type Store struct {
	db *sql.DB
}

// Open prepares the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			room_code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			host_name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			channel_id TEXT,
			connected INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS characters (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			hp INTEGER NOT NULL,
			max_hp INTEGER NOT NULL,
			FOREIGN KEY(member_id) REFERENCES members(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS turn_states (
			session_id TEXT PRIMARY KEY,
			entries TEXT NOT NULL DEFAULT '[]',
			cursor INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS combat_logs (
			session_id TEXT PRIMARY KEY,
			entries TEXT NOT NULL DEFAULT '[]',
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_members_session ON members(session_id);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// CreateSession inserts one session row. A room-code race surfaces as
// app.ErrCodeTaken so the directory can regenerate.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, room_code, name, host_name) VALUES (?, ?, ?, ?)`,
		string(sess.ID), sess.RoomCode, sess.Name, sess.HostName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return app.ErrCodeTaken
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SessionByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx,
		`SELECT id, room_code, name, host_name FROM sessions WHERE id = ?`, string(id)))
}

func (s *Store) SessionByCode(ctx context.Context, code string) (*domain.Session, error) {
	return s.scanSession(s.db.QueryRowContext(ctx,
		`SELECT id, room_code, name, host_name FROM sessions WHERE room_code = ?`, code))
}

func (s *Store) scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	err := row.Scan(&sess.ID, &sess.RoomCode, &sess.Name, &sess.HostName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// AddMember inserts a member slot. The capacity check and the insert
// run as one guarded statement, so concurrent joins cannot push a
// session past domain.MaxMembers.
func (s *Store) AddMember(ctx context.Context, m *domain.Member) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, session_id, channel_id, connected)
		 SELECT ?, ?, NULL, 0
		 WHERE (SELECT COUNT(*) FROM members WHERE session_id = ?) < ?`,
		string(m.ID), string(m.SessionID), string(m.SessionID), domain.MaxMembers,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if n == 0 {
		return domain.ErrRoomFull
	}
	return nil
}

func (s *Store) MemberByID(ctx context.Context, id domain.MemberID) (*domain.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT m.id, m.session_id, m.channel_id, m.connected,
		        c.id, c.name, c.hp, c.max_hp
		 FROM members m
		 LEFT JOIN characters c ON c.member_id = m.id
		 WHERE m.id = ?`, string(id))
	m, err := scanMember(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) Members(ctx context.Context, sessionID domain.SessionID) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.channel_id, m.connected,
		        c.id, c.name, c.hp, c.max_hp
		 FROM members m
		 LEFT JOIN characters c ON c.member_id = m.id
		 WHERE m.session_id = ?
		 ORDER BY m.id`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*domain.Member, error) {
	var (
		m         domain.Member
		channelID sql.NullString
		charID    sql.NullString
		charName  sql.NullString
		hp, maxHP sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.SessionID, &channelID, &m.Connected, &charID, &charName, &hp, &maxHP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan member: %w", err)
	}
	m.ChannelID = channelID.String
	if charID.Valid {
		m.Character = &domain.Character{
			ID:       charID.String,
			MemberID: m.ID,
			Name:     charName.String,
			HP:       int(hp.Int64),
			MaxHP:    int(maxHP.Int64),
		}
	}
	return &m, nil
}

// SetMemberChannel records the live channel binding. A NULL channel id
// plus connected=0 is the disconnected state; reconnects overwrite any
// stale channel id immediately.
func (s *Store) SetMemberChannel(ctx context.Context, id domain.MemberID, channelID string, connected bool) error {
	var channel any
	if channelID != "" {
		channel = channelID
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET channel_id = ?, connected = ? WHERE id = ?`,
		channel, connected, string(id))
	if err != nil {
		return fmt.Errorf("update member channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member channel: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCharacter(ctx context.Context, c *domain.Character) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO characters (id, member_id, name, hp, max_hp) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(member_id) DO UPDATE SET name = excluded.name, hp = excluded.hp, max_hp = excluded.max_hp`,
		c.ID, string(c.MemberID), c.Name, c.HP, c.MaxHP)
	if err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	return nil
}
