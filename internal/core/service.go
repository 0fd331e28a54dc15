package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"trackcore/pkg/track"
)

// Service wraps a Tracker with locking and operation instrumentation: every
// call is traced, timed, counted and audited through the configured sinks.
// All methods are safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	tracker *Tracker

	logger    Logger
	clock     Clock
	audit     AuditRecorder
	metrics   MetricsRecorder
	tracer    Tracer
	entityKey EntityKeyFunc
}

// NewService builds a service around tracker. A nil tracker gets a fresh one.
func NewService(tracker *Tracker, opts ...ServiceOption) *Service {
	if tracker == nil {
		tracker = NewTracker()
	}
	svc := &Service{
		tracker:   tracker,
		logger:    noopLogger{},
		clock:     systemClock{},
		audit:     noopAuditRecorder{},
		metrics:   noopMetricsRecorder{},
		tracer:    noopTracer{},
		entityKey: defaultEntityKey,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func defaultEntityKey(entity Entity) string {
	if entity == nil {
		return ""
	}
	if s, ok := entity.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", entity)
}

// Tracker exposes the wrapped tracker for callers that need direct,
// unlocked access in single-goroutine setups.
func (s *Service) Tracker() *Tracker { return s.tracker }

func (s *Service) instrument(ctx context.Context, operation, entityKey string, fn func() error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.clock.Now()
	err := fn()
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)

	entry := AuditEntry{
		Operation: operation,
		EntityKey: entityKey,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)

	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "entity", entityKey, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation, "entity", entityKey, "duration", duration)
	}
	return err
}

// Add records a change.
func (s *Service) Add(ctx context.Context, change Change, behavior AddBehavior) error {
	var key string
	if change != nil {
		key = s.entityKey(change.Owner())
	}
	return s.instrument(ctx, "add_change", key, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.Add(change, behavior)
	})
}

// Undo steps one change backward.
func (s *Service) Undo(ctx context.Context) error {
	return s.instrument(ctx, "undo", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.Undo()
	})
}

// Redo replays one change forward.
func (s *Service) Redo(ctx context.Context) error {
	return s.instrument(ctx, "redo", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.Redo()
	})
}

// AcceptAll commits the full backward history and clears all tracking state.
func (s *Service) AcceptAll(ctx context.Context) error {
	return s.instrument(ctx, "accept_all", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.AcceptAll()
	})
}

// RejectAll unwinds the full backward history and clears all tracking state.
func (s *Service) RejectAll(ctx context.Context) error {
	return s.instrument(ctx, "reject_all", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.RejectAll()
	})
}

// RegisterTransient marks an entity as newly created.
func (s *Service) RegisterTransient(ctx context.Context, entity Entity, autoRemove bool) error {
	return s.instrument(ctx, "register_transient", s.entityKey(entity), func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.RegisterTransient(entity, autoRemove)
	})
}

// UnregisterTransient drops an entity's transient registration.
func (s *Service) UnregisterTransient(ctx context.Context, entity Entity) error {
	return s.instrument(ctx, "unregister_transient", s.entityKey(entity), func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.UnregisterTransient(entity)
	})
}

// EntityState classifies an entity.
func (s *Service) EntityState(entity Entity) TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.EntityState(entity)
}

// HasTransientEntities reports whether any transient registration exists.
func (s *Service) HasTransientEntities() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.HasTransientEntities()
}

// Entities returns every entity the tracker knows about.
func (s *Service) Entities() []Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Entities()
}

// ChangeSet returns a copy of the recorded backward history, oldest first.
func (s *Service) ChangeSet() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.ChangeSet()
}

// CanUndo reports whether backward history exists.
func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CanUndo()
}

// CanRedo reports whether forward history exists.
func (s *Service) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CanRedo()
}

// Suspend pauses recording.
func (s *Service) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Suspend()
}

// Resume unwinds one Suspend.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Resume()
}

// Advisory computes the persistence plan for the current backward history.
func (s *Service) Advisory(ctx context.Context, filter Filter) Advisory {
	var plan Advisory
	_ = s.instrument(ctx, "advisory", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		plan = s.tracker.Advisory(filter)
		return nil
	})
	return plan
}

// CreateBookmark captures the current history position.
func (s *Service) CreateBookmark(ctx context.Context) Bookmark {
	var bookmark Bookmark
	_ = s.instrument(ctx, "create_bookmark", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		bookmark = s.tracker.CreateBookmark()
		return nil
	})
	return bookmark
}

// RevertBookmark unwinds history back to a bookmarked position.
func (s *Service) RevertBookmark(ctx context.Context, bookmark Bookmark) error {
	return s.instrument(ctx, "revert_bookmark", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.tracker.RevertToBookmark(bookmark)
	})
}

// ScopedOperation is an instrumented handle over an open atomic scope.
type ScopedOperation struct {
	svc *Service
	op  *AtomicOperation
}

// BeginAtomic opens an atomic recording scope.
func (s *Service) BeginAtomic(ctx context.Context, description string) (*ScopedOperation, error) {
	var scoped *ScopedOperation
	err := s.instrument(ctx, "begin_atomic", "", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		op, err := s.tracker.BeginAtomic(description)
		if err != nil {
			return err
		}
		scoped = &ScopedOperation{svc: s, op: op}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scoped, nil
}

// Add buffers a change into the open scope.
func (o *ScopedOperation) Add(change Change, behavior AddBehavior) error {
	o.svc.mu.Lock()
	defer o.svc.mu.Unlock()
	return o.op.Add(change, behavior)
}

// RegisterTransient records an entity created inside the scope.
func (o *ScopedOperation) RegisterTransient(entity Entity, autoRemove bool) error {
	o.svc.mu.Lock()
	defer o.svc.mu.Unlock()
	return o.op.RegisterTransient(entity, autoRemove)
}

// Complete closes the scope and lands its changes as one unit.
func (o *ScopedOperation) Complete(ctx context.Context) error {
	return o.svc.instrument(ctx, "complete_atomic", "", func() error {
		o.svc.mu.Lock()
		defer o.svc.mu.Unlock()
		return o.op.Complete()
	})
}

// Cancel closes the scope and unwinds its changes.
func (o *ScopedOperation) Cancel(ctx context.Context) error {
	return o.svc.instrument(ctx, "cancel_atomic", "", func() error {
		o.svc.mu.Lock()
		defer o.svc.mu.Unlock()
		return o.op.Cancel()
	})
}

// RecordAdvisory computes the current persistence plan and appends it to the
// journal as sequenced entries. Each entry carries the joined descriptions of
// the changes advising its entity and a best-effort JSON snapshot of the
// entity; entities that do not marshal are journaled without a payload.
func (s *Service) RecordAdvisory(ctx context.Context, journal Journal, filter Filter) ([]JournalEntry, error) {
	if journal == nil {
		return nil, fmt.Errorf("core: journal cannot be nil")
	}
	var entries []JournalEntry
	err := s.instrument(ctx, "record_advisory", "", func() error {
		s.mu.Lock()
		plan := s.tracker.Advisory(filter)
		history := s.tracker.ChangeSet()
		s.mu.Unlock()

		match := filter
		if match == nil {
			match = track.IncludeAll
		}
		descriptions := make(map[Entity][]string)
		for _, change := range history {
			if !match(change) {
				continue
			}
			for _, entity := range change.ChangedEntities() {
				descriptions[entity] = append(descriptions[entity], change.Description())
			}
		}

		now := s.clock.Now()
		entries = make([]JournalEntry, 0, len(plan))
		for i, advised := range plan {
			entry := JournalEntry{
				ID:          uuid.NewString(),
				Seq:         int64(i + 1),
				EntityKey:   s.entityKey(advised.Entity),
				Action:      advised.Action.String(),
				Description: strings.Join(descriptions[advised.Entity], "; "),
				RecordedAt:  now,
			}
			if payload, err := track.NewPayloadFromValue(advised.Entity); err == nil {
				entry.Payload = payload.Raw()
			}
			entries = append(entries, entry)
		}
		return journal.Append(ctx, entries)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
