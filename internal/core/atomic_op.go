package core

import (
	"fmt"

	"trackcore/pkg/track"
)

type atomicState int

const (
	atomicOpen atomicState = iota
	atomicCompleted
	atomicCancelled
)

// AtomicOperation is an open recording scope. Changes added while it is open
// are buffered into a single composite; Complete lands the composite on the
// undo stack as one unit, Cancel unwinds everything recorded so far. A
// tracker has at most one open operation at a time.
type AtomicOperation struct {
	tracker *Tracker
	scope   *AtomicChange
	state   atomicState
}

// BeginAtomic opens an atomic recording scope.
func (t *Tracker) BeginAtomic(description string) (*AtomicOperation, error) {
	if t.pendingOp != nil {
		return nil, ErrOperationActive
	}
	op := &AtomicOperation{
		tracker: t,
		scope:   track.NewAtomicChange(description),
	}
	t.pending = op.scope
	t.pendingOp = op
	return op, nil
}

// Description returns the scope's summary.
func (o *AtomicOperation) Description() string { return o.scope.Description() }

// Len reports the number of changes buffered so far.
func (o *AtomicOperation) Len() int { return o.scope.Len() }

// Completed reports whether the operation was completed successfully.
func (o *AtomicOperation) Completed() bool { return o.state == atomicCompleted }

// Cancelled reports whether the operation was cancelled.
func (o *AtomicOperation) Cancelled() bool { return o.state == atomicCancelled }

// Add buffers a change into the open scope.
func (o *AtomicOperation) Add(change Change, behavior AddBehavior) error {
	if o.state != atomicOpen {
		return ErrOperationClosed
	}
	return o.scope.Add(change, behavior)
}

// RegisterTransient records an entity created inside the scope. The
// registration merges into the tracker on Complete and is discarded on
// Cancel.
func (o *AtomicOperation) RegisterTransient(entity Entity, autoRemove bool) error {
	if o.state != atomicOpen {
		return ErrOperationClosed
	}
	return o.scope.RegisterTransient(entity, autoRemove)
}

// Complete closes the scope. A non-empty composite is pushed onto the undo
// stack and the redo stack is cleared; an empty scope leaves the history
// untouched. Transients merge into the tracker registry, with an existing
// registration winning over the scope's.
func (o *AtomicOperation) Complete() error {
	if o.state != atomicOpen {
		return ErrOperationClosed
	}
	t := o.tracker
	t.pending = nil
	t.pendingOp = nil
	o.state = atomicCompleted
	o.scope.MergeTransientsInto(func(entity Entity, autoRemove bool) {
		if _, ok := t.registry[entity]; !ok {
			t.registry[entity] = transientRecord{autoRemove: autoRemove}
		}
	})
	if o.scope.Len() == 0 {
		return nil
	}
	t.undo = append(t.undo, o.scope)
	t.redo = nil
	for _, fn := range t.recorded.snapshot() {
		fn(o.scope)
	}
	return nil
}

// Cancel closes the scope and unwinds everything it buffered, newest first.
// Scope-local transient registrations are discarded.
func (o *AtomicOperation) Cancel() error {
	if o.state != atomicOpen {
		return ErrOperationClosed
	}
	t := o.tracker
	t.pending = nil
	t.pendingOp = nil
	o.state = atomicCancelled
	if err := o.scope.Reject(track.ReasonCancel); err != nil {
		return fmt.Errorf("core: cancel atomic operation: %w", err)
	}
	return nil
}
