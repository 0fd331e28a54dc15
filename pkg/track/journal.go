package track

import (
	"context"
	"encoding/json"
	"time"
)

// AdvisedEntity pairs an entity with the single most relevant persistence
// action derived from its tracked changes.
type AdvisedEntity struct {
	Entity Entity
	Action ProposedAction
}

// Advisory is the ordered, deduplicated persistence plan computed from a
// tracker's undo stack. Ordering follows first encounter among the distinct
// entities; it is computed fresh on every request and never cached.
type Advisory []AdvisedEntity

// JournalEntry is the serialized form of one advised action, suitable for a
// durable change journal.
type JournalEntry struct {
	ID          string          `json:"id"`
	Seq         int64           `json:"seq"`
	EntityKey   string          `json:"entity_key"`
	Action      string          `json:"action"`
	Description string          `json:"description,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Journal is the minimal abstraction over durable advisory sinks. Backends
// live under internal/infra/journal.
type Journal interface {
	Append(ctx context.Context, entries []JournalEntry) error
	Entries(ctx context.Context) ([]JournalEntry, error)
	Close() error
}
