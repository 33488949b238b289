// Package memory is the long-term note store (D1) backed by a local SQLite
// database. It is deliberately decoupled from the session and pending-action
// registries: a memory entry outlives the WebSocket connection it was
// written from.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// Entry is one saved note.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed memory table, one row per saved note.
type Store struct {
	db *sql.DB
}

// Open creates or opens the memory database at path and ensures its schema
// exists. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("memory: create table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id)`)
	if err != nil {
		return fmt.Errorf("memory: create index: %w", err)
	}
	return nil
}

// Add inserts a note for sessionID and returns its assigned id.
func (s *Store) Add(ctx context.Context, sessionID, text string) (int64, error) {
	if text == "" {
		return 0, fmt.Errorf("memory: text must not be empty")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO memories (session_id, text) VALUES (?, ?)`, sessionID, text)
	if err != nil {
		return 0, fmt.Errorf("memory: insert: %w", err)
	}
	return res.LastInsertId()
}

// ListRecent returns sessionID's most recent notes, newest first, capped at
// limit entries.
func (s *Store) ListRecent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, text, created_at FROM memories WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("memory: scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes one note, scoped to sessionID so one session cannot delete
// another's notes by guessing an id.
func (s *Store) Delete(ctx context.Context, sessionID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND session_id = ?`, id, sessionID)
	if err != nil {
		return fmt.Errorf("memory: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("memory: delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("memory: no entry %d for session %s", id, sessionID)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
