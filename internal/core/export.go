package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"trackcore/internal/blob"
)

// HistoryExporter snapshots a tracker's backward history and its advisory to
// a blob store as JSON-lines documents.
type HistoryExporter struct {
	store     blob.Store
	clock     Clock
	entityKey EntityKeyFunc
	prefix    string
}

// NewHistoryExporter builds an exporter writing under prefix. An empty prefix
// defaults to "history".
func NewHistoryExporter(store blob.Store, prefix string, opts ...ExporterOption) (*HistoryExporter, error) {
	if store == nil {
		return nil, fmt.Errorf("core: blob store cannot be nil")
	}
	if prefix == "" {
		prefix = "history"
	}
	e := &HistoryExporter{store: store, clock: systemClock{}, entityKey: defaultEntityKey, prefix: prefix}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExporterOption configures a HistoryExporter.
type ExporterOption func(*HistoryExporter)

// WithExporterClock overrides the exporter's time source.
func WithExporterClock(clock Clock) ExporterOption {
	return func(e *HistoryExporter) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithExporterEntityKeyFunc overrides entity key rendering.
func WithExporterEntityKeyFunc(fn EntityKeyFunc) ExporterOption {
	return func(e *HistoryExporter) {
		if fn != nil {
			e.entityKey = fn
		}
	}
}

type historyLine struct {
	Index       int      `json:"index"`
	Description string   `json:"description"`
	Entities    []string `json:"entities"`
}

type advisoryLine struct {
	Seq       int    `json:"seq"`
	EntityKey string `json:"entity_key"`
	Action    string `json:"action"`
}

// Export writes two blobs, <prefix>/<stamp>/history.jsonl and
// <prefix>/<stamp>/advisory.jsonl, and returns their stored metadata.
func (e *HistoryExporter) Export(ctx context.Context, tracker *Tracker, filter Filter) ([]blob.Info, error) {
	if tracker == nil {
		return nil, fmt.Errorf("core: tracker cannot be nil")
	}
	stamp := e.clock.Now().UTC().Format("20060102T150405.000000000Z")
	base := fmt.Sprintf("%s/%s", e.prefix, stamp)

	var history bytes.Buffer
	enc := json.NewEncoder(&history)
	for i, change := range tracker.ChangeSet() {
		line := historyLine{Index: i, Description: change.Description()}
		for _, entity := range change.ChangedEntities() {
			line.Entities = append(line.Entities, e.entityKey(entity))
		}
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("encode history line: %w", err)
		}
	}

	var advisory bytes.Buffer
	enc = json.NewEncoder(&advisory)
	for i, advised := range tracker.Advisory(filter) {
		line := advisoryLine{Seq: i + 1, EntityKey: e.entityKey(advised.Entity), Action: advised.Action.String()}
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("encode advisory line: %w", err)
		}
	}

	opts := blob.PutOptions{ContentType: "application/x-ndjson"}
	historyInfo, err := e.store.Put(ctx, base+"/history.jsonl", &history, opts)
	if err != nil {
		return nil, fmt.Errorf("put history: %w", err)
	}
	advisoryInfo, err := e.store.Put(ctx, base+"/advisory.jsonl", &advisory, opts)
	if err != nil {
		return nil, fmt.Errorf("put advisory: %w", err)
	}
	return []blob.Info{historyInfo, advisoryInfo}, nil
}
