// Package postgres provides a PostgreSQL-backed journal.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"trackcore/pkg/track"
)

var _ track.Journal = (*Journal)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/trackcore?sslmode=disable"
)

// sqlOpen is swapped in tests to avoid a live server.
var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Journal appends entries to a single postgres table.
type Journal struct {
	db *sql.DB
}

// NewJournal connects using dsn (falls back to defaultDSN) and ensures the
// journal table exists.
func NewJournal(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		seq BIGINT NOT NULL,
		entity_key TEXT NOT NULL,
		action TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payload JSONB,
		recorded_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure journal table: %w", err)
	}
	return &Journal{db: db}, nil
}

// DB exposes the underlying handle for integration testing hooks.
func (j *Journal) DB() *sql.DB { return j.db }

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
		var payload any
		if len(entry.Payload) > 0 {
			payload = []byte(entry.Payload)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journal (id, seq, entity_key, action, description, payload, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.Seq, entry.EntityKey, entry.Action, entry.Description, payload, entry.RecordedAt,
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

// Entries reads back everything ordered by sequence, then record time.
func (j *Journal) Entries(ctx context.Context) ([]track.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, seq, entity_key, action, description, payload, recorded_at
		 FROM journal ORDER BY recorded_at, seq`)
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
