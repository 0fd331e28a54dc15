package core

import (
	"fmt"

	"github.com/google/uuid"

	"trackcore/pkg/track"
)

type transientRecord struct {
	autoRemove bool
}

// Bookmark captures a position in a tracker's backward history. It stays
// valid until the tracker's history is destructively cleared by an
// accept-all or reject-all, after which Revert reports ErrInvalidBookmark.
type Bookmark struct {
	tracker string
	depth   int
	epoch   uint64
}

// Depth returns the undo-stack depth the bookmark points at.
func (b Bookmark) Depth() int { return b.depth }

// VetoFunc inspects a pending bulk operation and may cancel it by returning
// false.
type VetoFunc func() bool

// Tracker is the change-tracking engine: an undo stack, a redo stack, a
// transient-entity registry and at most one open atomic scope. It is not safe
// for concurrent use; Service adds the locking and observability layer.
type Tracker struct {
	id        string
	undo      []Change
	redo      []Change
	registry  map[Entity]transientRecord
	suspended int
	pending   *AtomicChange
	pendingOp *AtomicOperation
	epoch     uint64

	accepting callbackList[VetoFunc]
	rejecting callbackList[VetoFunc]
	accepted  callbackList[func()]
	rejected  callbackList[func()]
	recorded  callbackList[func(Change)]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		id:       uuid.NewString(),
		registry: make(map[Entity]transientRecord),
	}
}

// ID returns the tracker's unique identifier.
func (t *Tracker) ID() string { return t.id }

// Depth reports the number of changes on the undo stack.
func (t *Tracker) Depth() int { return len(t.undo) }

// ForwardDepth reports the number of changes on the redo stack.
func (t *Tracker) ForwardDepth() int { return len(t.redo) }

// ChangeSet returns a copy of the backward history, oldest first. Mutating
// the returned slice leaves the tracker untouched; the Change values are
// shared.
func (t *Tracker) ChangeSet() []Change {
	if len(t.undo) == 0 {
		return nil
	}
	out := make([]Change, len(t.undo))
	copy(out, t.undo)
	return out
}

// CanUndo reports whether at least one backward change is available.
func (t *Tracker) CanUndo() bool { return len(t.undo) > 0 }

// CanRedo reports whether at least one forward change is available.
func (t *Tracker) CanRedo() bool { return len(t.redo) > 0 }

// Suspended reports whether recording is currently paused.
func (t *Tracker) Suspended() bool { return t.suspended > 0 }

// Suspend pauses recording. Calls nest; each Suspend needs a matching Resume.
func (t *Tracker) Suspend() { t.suspended++ }

// Resume unwinds one Suspend.
func (t *Tracker) Resume() {
	if t.suspended > 0 {
		t.suspended--
	}
}

// Add records a change. While suspended the change is silently dropped. While
// an atomic scope is open the change is buffered into it instead of the undo
// stack. Otherwise the change is pushed and, unless behavior preserves it,
// the redo stack is cleared.
func (t *Tracker) Add(change Change, behavior AddBehavior) error {
	if change == nil {
		return fmt.Errorf("core: change cannot be nil")
	}
	if t.suspended > 0 {
		return nil
	}
	if t.pending != nil {
		return t.pending.Add(change, behavior)
	}
	t.undo = append(t.undo, change)
	if behavior != AddPreserveRedo {
		t.redo = nil
	}
	for _, fn := range t.recorded.snapshot() {
		fn(change)
	}
	return nil
}

// Undo rejects the most recent backward change and moves it to the redo
// stack. A failing reject leaves the change where it was.
func (t *Tracker) Undo() error {
	if t.pendingOp != nil {
		return ErrOperationActive
	}
	if len(t.undo) == 0 {
		return ErrNoBackwardChanges
	}
	change := t.undo[len(t.undo)-1]
	t.undo = t.undo[:len(t.undo)-1]
	if err := change.Reject(track.ReasonUndo); err != nil {
		t.undo = append(t.undo, change)
		return err
	}
	t.redo = append(t.redo, change)
	t.pruneTransients(change)
	return nil
}

// Redo replays the most recent forward change through its commit callback and
// moves it back to the undo stack. A failing commit leaves the change on the
// redo stack.
func (t *Tracker) Redo() error {
	if t.pendingOp != nil {
		return ErrOperationActive
	}
	if len(t.redo) == 0 {
		return ErrNoForwardChanges
	}
	change := t.redo[len(t.redo)-1]
	t.redo = t.redo[:len(t.redo)-1]
	if err := change.Commit(track.ReasonRedo); err != nil {
		t.redo = append(t.redo, change)
		return err
	}
	t.undo = append(t.undo, change)
	return nil
}

// AcceptAll commits every backward change from oldest to newest and clears
// all history plus the transient registry. Commit callbacks are idempotent,
// so changes whose effect is already applied are safe to replay. Subscribed
// veto observers may cancel the operation before any change is touched.
func (t *Tracker) AcceptAll() error {
	if t.pendingOp != nil {
		return ErrOperationActive
	}
	for _, fn := range t.accepting.snapshot() {
		if !fn() {
			return ErrVetoed
		}
	}
	for _, change := range t.undo {
		if err := change.Commit(track.ReasonAccept); err != nil {
			return err
		}
	}
	t.undo = nil
	t.redo = nil
	t.registry = make(map[Entity]transientRecord)
	t.epoch++
	for _, fn := range t.accepted.snapshot() {
		fn()
	}
	return nil
}

// RejectAll rejects every backward change from newest to oldest, unregisters
// auto-remove transients and clears all history. Subscribed veto observers
// may cancel the operation before any change is touched.
func (t *Tracker) RejectAll() error {
	if t.pendingOp != nil {
		return ErrOperationActive
	}
	for _, fn := range t.rejecting.snapshot() {
		if !fn() {
			return ErrVetoed
		}
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		if err := t.undo[i].Reject(track.ReasonReject); err != nil {
			t.undo = t.undo[:i+1]
			return err
		}
	}
	for entity, rec := range t.registry {
		if rec.autoRemove {
			delete(t.registry, entity)
		}
	}
	t.undo = nil
	t.redo = nil
	t.epoch++
	for _, fn := range t.rejected.snapshot() {
		fn()
	}
	return nil
}

// RegisterTransient marks an entity as newly created and not yet persisted.
// With autoRemove set the registration is dropped automatically once the
// entity's last backward change is undone or rejected.
//
// While an atomic scope is open the registration is buffered into the scope
// and checked only against the scope's local view; the tracker-level registry
// is not consulted until the scope completes, at which point an existing
// tracker registration wins and the scoped one is discarded.
func (t *Tracker) RegisterTransient(entity Entity, autoRemove bool) error {
	if entity == nil {
		return fmt.Errorf("core: transient entity cannot be nil")
	}
	if t.pending != nil {
		return t.pending.RegisterTransient(entity, autoRemove)
	}
	if _, ok := t.registry[entity]; ok {
		return track.DuplicateTransientError{Entity: entity}
	}
	if stackTouches(t.undo, entity) || stackTouches(t.redo, entity) {
		return fmt.Errorf("core: entity %v already has tracked changes", entity)
	}
	t.registry[entity] = transientRecord{autoRemove: autoRemove}
	return nil
}

// HasTransientEntities reports whether any transient registration exists.
func (t *Tracker) HasTransientEntities() bool { return len(t.registry) > 0 }

// Entities returns every entity the tracker knows about: all transient
// registrations plus every entity touched by a stacked change, deduplicated
// in first-encounter order with stack entities first.
func (t *Tracker) Entities() []Entity {
	var out []Entity
	seen := make(map[Entity]struct{})
	appendEntity := func(entity Entity) {
		if _, ok := seen[entity]; ok {
			return
		}
		seen[entity] = struct{}{}
		out = append(out, entity)
	}
	for _, change := range t.undo {
		for _, entity := range change.ChangedEntities() {
			appendEntity(entity)
		}
	}
	for _, change := range t.redo {
		for _, entity := range change.ChangedEntities() {
			appendEntity(entity)
		}
	}
	for entity := range t.registry {
		appendEntity(entity)
	}
	return out
}

// UnregisterTransient removes an entity from the transient registry.
func (t *Tracker) UnregisterTransient(entity Entity) error {
	if _, ok := t.registry[entity]; !ok {
		return track.NotTransientError{Entity: entity}
	}
	delete(t.registry, entity)
	return nil
}

// EntityState classifies entity against the registry and both stacks. With an
// open atomic scope the scope's local view is merged in.
func (t *Tracker) EntityState(entity Entity) TrackingState {
	state := StateNone
	if rec, ok := t.registry[entity]; ok {
		state |= StateTransient
		if rec.autoRemove {
			state |= StateAutoRemove
		}
	}
	if stackTouches(t.undo, entity) {
		state |= StateHasBackwardChanges
	}
	if stackTouches(t.redo, entity) {
		state |= StateHasForwardChanges
	}
	if t.pending != nil {
		state |= t.pending.EntityState(entity)
	}
	return state
}

func stackTouches(stack []Change, entity Entity) bool {
	for _, change := range stack {
		for _, touched := range change.ChangedEntities() {
			if touched == entity {
				return true
			}
		}
	}
	return false
}

// Advisory computes the persistence plan from the undo stack. Changes are
// visited oldest to newest; per entity the most recent advised action wins,
// and entities appear in first-encounter order. Transient entities have
// ActionCreate folded into their advised action. The plan is computed fresh
// on every call.
func (t *Tracker) Advisory(filter Filter) Advisory {
	if filter == nil {
		filter = track.IncludeAll
	}
	var order []Entity
	actions := make(map[Entity]ProposedAction)
	for _, change := range t.undo {
		if !filter(change) {
			continue
		}
		for _, entity := range change.ChangedEntities() {
			action, err := change.AdvisedAction(entity)
			if err != nil {
				continue
			}
			if _, seen := actions[entity]; !seen {
				order = append(order, entity)
			}
			actions[entity] = action
		}
	}
	plan := make(Advisory, 0, len(order))
	for _, entity := range order {
		action := actions[entity]
		if _, ok := t.registry[entity]; ok {
			action |= ActionCreate
		}
		plan = append(plan, AdvisedEntity{Entity: entity, Action: action})
	}
	return plan
}

// CreateBookmark captures the current undo depth. The bookmark is bound to
// this tracker and to the current history epoch.
func (t *Tracker) CreateBookmark() Bookmark {
	return Bookmark{tracker: t.id, depth: len(t.undo), epoch: t.epoch}
}

// ValidateBookmark reports whether b can still be reverted to.
func (t *Tracker) ValidateBookmark(b Bookmark) bool {
	return b.tracker == t.id && b.epoch == t.epoch && b.depth <= len(t.undo)
}

// RevertToBookmark undoes changes until the undo stack is back at the
// bookmarked depth.
func (t *Tracker) RevertToBookmark(b Bookmark) error {
	if t.pendingOp != nil {
		return ErrOperationActive
	}
	if !t.ValidateBookmark(b) {
		return ErrInvalidBookmark
	}
	for len(t.undo) > b.depth {
		if err := t.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// OnAccepting subscribes a veto observer consulted before AcceptAll proceeds.
// The returned function unsubscribes.
func (t *Tracker) OnAccepting(fn VetoFunc) func() { return t.accepting.add(fn) }

// OnRejecting subscribes a veto observer consulted before RejectAll proceeds.
func (t *Tracker) OnRejecting(fn VetoFunc) func() { return t.rejecting.add(fn) }

// OnAccepted subscribes a notification fired after AcceptAll succeeds.
func (t *Tracker) OnAccepted(fn func()) func() { return t.accepted.add(fn) }

// OnRejected subscribes a notification fired after RejectAll succeeds.
func (t *Tracker) OnRejected(fn func()) func() { return t.rejected.add(fn) }

// OnRecorded subscribes a notification fired when a change lands on the undo
// stack directly. Changes buffered into an atomic scope notify when the scope
// completes.
func (t *Tracker) OnRecorded(fn func(Change)) func() { return t.recorded.add(fn) }

// pruneTransients drops auto-remove registrations for entities touched by the
// just-undone change that no longer have backward changes.
func (t *Tracker) pruneTransients(change Change) {
	for _, entity := range change.ChangedEntities() {
		rec, ok := t.registry[entity]
		if !ok || !rec.autoRemove {
			continue
		}
		if !stackTouches(t.undo, entity) {
			delete(t.registry, entity)
		}
	}
}
