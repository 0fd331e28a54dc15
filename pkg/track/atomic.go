package track

import "fmt"

type trackedChange struct {
	change   Change
	behavior AddBehavior
}

// AtomicChange aggregates an ordered sequence of changes plus the transient
// registrations made during the same scope. The rest of the engine treats it
// as a single indivisible change: commit replays sub-changes in insertion
// order, reject unwinds them in reverse, and the advised action for an entity
// is taken from the last sub-change that touched it.
type AtomicChange struct {
	description string
	items       []trackedChange
	transients  map[Entity]bool // entity -> auto-remove flag
	committed   []ChangeObserver
	rejected    []ChangeObserver
}

// NewAtomicChange returns an empty atomic composite.
func NewAtomicChange(description string) *AtomicChange {
	return &AtomicChange{
		description: description,
		transients:  make(map[Entity]bool),
	}
}

// Owner returns nil: an atomic composite has no single owning entity.
func (a *AtomicChange) Owner() Entity { return nil }

// Description returns the human-readable summary supplied at construction.
func (a *AtomicChange) Description() string { return a.description }

// Len reports the number of buffered sub-changes.
func (a *AtomicChange) Len() int { return len(a.items) }

// Add appends a sub-change. Sub-changes are never reordered afterwards.
func (a *AtomicChange) Add(change Change, behavior AddBehavior) error {
	if change == nil {
		return fmt.Errorf("track: atomic sub-change cannot be nil")
	}
	a.items = append(a.items, trackedChange{change: change, behavior: behavior})
	return nil
}

// RegisterTransient records an entity created within this scope. Registering
// the same entity twice is a caller error.
func (a *AtomicChange) RegisterTransient(entity Entity, autoRemove bool) error {
	if entity == nil {
		return fmt.Errorf("track: transient entity cannot be nil")
	}
	if _, ok := a.transients[entity]; ok {
		return DuplicateTransientError{Entity: entity}
	}
	a.transients[entity] = autoRemove
	return nil
}

// EntityState combines the local transient bits with backward/forward flags.
// A sub-change anywhere in the list sets both directions: the composite is
// undo- and redo-able only as a whole.
func (a *AtomicChange) EntityState(entity Entity) TrackingState {
	state := StateNone
	if autoRemove, ok := a.transients[entity]; ok {
		state |= StateTransient
		if autoRemove {
			state |= StateAutoRemove
		}
	}
	for _, item := range a.items {
		if item.change.Owner() == entity {
			state |= StateHasBackwardChanges | StateHasForwardChanges
			break
		}
	}
	return state
}

// ChangedEntities flattens the sub-changes' entities. Duplicates are allowed.
func (a *AtomicChange) ChangedEntities() []Entity {
	var out []Entity
	for _, item := range a.items {
		out = append(out, item.change.ChangedEntities()...)
	}
	return out
}

// AdvisedAction applies the most-recent-wins rule: the last sub-change owned
// by entity decides. When no sub-change is owned by the entity, the last one
// that recognizes it decides instead, so collection items advised by an
// owner-scoped sub-change still resolve.
func (a *AtomicChange) AdvisedAction(entity Entity) (ProposedAction, error) {
	for i := len(a.items) - 1; i >= 0; i-- {
		if a.items[i].change.Owner() == entity {
			return a.items[i].change.AdvisedAction(entity)
		}
	}
	for i := len(a.items) - 1; i >= 0; i-- {
		if action, err := a.items[i].change.AdvisedAction(entity); err == nil {
			return action, nil
		}
	}
	return ActionNone, UnknownEntityError{Entity: entity}
}

// Commit replays sub-changes in insertion order, then fires the aggregate
// committed notification once.
func (a *AtomicChange) Commit(reason Reason) error {
	for _, item := range a.items {
		if err := item.change.Commit(reason); err != nil {
			return err
		}
	}
	for _, fn := range a.committed {
		fn(a, reason)
	}
	return nil
}

// Reject unwinds sub-changes in reverse insertion order, then fires the
// aggregate rejected notification once. The order is a correctness
// requirement: a later structural change must be undone before the earlier
// ones its reject callback assumes untouched.
func (a *AtomicChange) Reject(reason Reason) error {
	for i := len(a.items) - 1; i >= 0; i-- {
		if err := a.items[i].change.Reject(reason); err != nil {
			return err
		}
	}
	for _, fn := range a.rejected {
		fn(a, reason)
	}
	return nil
}

// Clone is unsupported: the composite's identity is the exact sequence of
// sub-operations.
func (a *AtomicChange) Clone() (Change, error) { return nil, ErrNotSupported }

// OnCommitted subscribes fn to the aggregate committed notification.
func (a *AtomicChange) OnCommitted(fn ChangeObserver) { a.committed = append(a.committed, fn) }

// OnRejected subscribes fn to the aggregate rejected notification.
func (a *AtomicChange) OnRejected(fn ChangeObserver) { a.rejected = append(a.rejected, fn) }

// MergeTransientsInto hands every locally registered transient entity to
// register and clears the local set. Single use: the scope merges into the
// tracker registry exactly once, on successful completion.
func (a *AtomicChange) MergeTransientsInto(register func(entity Entity, autoRemove bool)) {
	for entity, autoRemove := range a.transients {
		register(entity, autoRemove)
	}
	a.transients = make(map[Entity]bool)
}
