package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailored-agentic-units/flora/core/protocol"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_turns (
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	turn       TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);`

// SQLiteStore keeps transcripts in a single SQLite table ordered by a
// per-session sequence number.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrStoreFailed)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStoreFailed, err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrStoreFailed, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Messages(ctx context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT turn FROM session_turns WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	defer rows.Close()

	msgs := []protocol.Message{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
		}
		var msg protocol.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: decode turn %d: %v", ErrStoreFailed, id, len(msgs), err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return msgs, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM session_turns WHERE session_id = ?`, id,
	).Scan(&next); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_turns (session_id, seq, turn) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	defer stmt.Close()

	for i, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("%w: %s: encode turn: %v", ErrStoreFailed, id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, next+int64(i), string(data)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
