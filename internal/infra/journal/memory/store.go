// Package memory provides an in-memory journal for tests and ephemeral use.
package memory

import (
	"context"
	"errors"
	"sync"

	"trackcore/pkg/track"
)

var _ track.Journal = (*Journal)(nil)

var errClosed = errors.New("memory journal: closed")

// Journal buffers entries in memory. Safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []track.JournalEntry
	closed  bool
}

// NewJournal returns an empty journal.
func NewJournal() *Journal { return &Journal{} }

// Append stores entries in arrival order.
func (j *Journal) Append(_ context.Context, entries []track.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errClosed
	}
	j.entries = append(j.entries, entries...)
	return nil
}

// Entries returns a copy of everything appended so far.
func (j *Journal) Entries(_ context.Context) ([]track.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, errClosed
	}
	out := make([]track.JournalEntry, len(j.entries))
	copy(out, j.entries)
	return out, nil
}

// Close marks the journal closed. Further calls fail.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
