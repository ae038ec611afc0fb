// Package history persists CLI macro commands
// in a small sqlite database, keyed by the session UUID they were typed
// under. Grounded on notepid-twilight_bbs's internal/db.DB: a
// *sql.DB wrapper, WAL mode best-effort, and a versioned migration
// list run at Open.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// Store wraps a sqlite-backed macro command history.
type Store struct {
	db *sql.DB
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create_commands",
		sql: `CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			command TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		name: "create_commands_session_idx",
		sql:  `CREATE INDEX IF NOT EXISTS idx_commands_session ON commands(session_id)`,
	},
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("history: WAL mode unavailable (%v), continuing without it", err)
	}

	s := &Store{db: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for i, m := range migrations {
		version := i + 1
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}

// Add records one typed macro command under sessionID.
func (s *Store) Add(sessionID uuid.UUID, command string) error {
	_, err := s.db.Exec("INSERT INTO commands (session_id, command) VALUES (?, ?)", sessionID.String(), command)
	return err
}

// Entry is one recorded command.
type Entry struct {
	Command   string
	CreatedAt time.Time
}

// Recent returns the last limit commands across every session, most
// recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query("SELECT command, created_at FROM commands ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Command, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ForSession returns the commands typed under one session, oldest first.
func (s *Store) ForSession(sessionID uuid.UUID) ([]Entry, error) {
	rows, err := s.db.Query("SELECT command, created_at FROM commands WHERE session_id = ? ORDER BY id ASC", sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Command, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
