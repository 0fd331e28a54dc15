// Package sqlite provides an embedded, file-backed journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"trackcore/pkg/track"
)

var _ track.Journal = (*Journal)(nil)

// Journal appends entries to a single sqlite table.
type Journal struct {
	db   *sql.DB
	path string
}

// NewJournal opens or creates the journal file at path. An empty path
// defaults to ./trackcore.db.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		path = "trackcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		entity_key TEXT NOT NULL,
		action TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payload BLOB,
		recorded_at TIMESTAMP NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &Journal{db: db, path: path}, nil
}

// Path returns the backing file location.
func (j *Journal) Path() string { return j.path }

// Append inserts entries inside one transaction.
func (j *Journal) Append(ctx context.Context, entries []track.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journal (id, seq, entity_key, action, description, payload, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Seq, entry.EntityKey, entry.Action, entry.Description, []byte(entry.Payload), entry.RecordedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert journal entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Entries reads back everything in insertion order.
func (j *Journal) Entries(ctx context.Context) ([]track.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, seq, entity_key, action, description, payload, recorded_at FROM journal ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []track.JournalEntry
	for rows.Next() {
		var entry track.JournalEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Seq, &entry.EntityKey, &entry.Action, &entry.Description, &payload, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if len(payload) > 0 {
			entry.Payload = payload
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (j *Journal) Close() error { return j.db.Close() }
