package core

import (
	"errors"
	"fmt"
	"testing"

	"trackcore/pkg/track"
)

// doc is the tracked entity used throughout these tests. Changes mutate value
// so commit/reject effects are observable.
type doc struct {
	name  string
	value int
}

func setValue(t *testing.T, d *doc, v int) Change {
	t.Helper()
	prev := d.value
	change, err := track.NewPropertyChange(d,
		track.PropertyDescriptor{Item: d, Property: "value", Previous: prev},
		func() error { d.value = v; return nil },
		func() error { d.value = prev; return nil },
		fmt.Sprintf("set %s=%d", d.name, v))
	if err != nil {
		t.Fatalf("NewPropertyChange: %v", err)
	}
	d.value = v
	return change
}

func addChange(t *testing.T, tracker *Tracker, change Change) {
	t.Helper()
	if err := tracker.Add(change, AddDefault); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestAddClearsRedoStack(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	for i := 1; i <= 3; i++ {
		addChange(t, tracker, setValue(t, d, i))
		if tracker.ForwardDepth() != 0 {
			t.Fatalf("redo stack not empty after add %d", i)
		}
	}
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !tracker.CanRedo() {
		t.Fatalf("expected redo after undo")
	}
	addChange(t, tracker, setValue(t, d, 9))
	if tracker.CanRedo() {
		t.Fatalf("add must clear redo stack")
	}
}

func TestAddPreserveRedoKeepsForwardHistory(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	addChange(t, tracker, setValue(t, d, 1))
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if err := tracker.Add(setValue(t, d, 2), AddPreserveRedo); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !tracker.CanRedo() {
		t.Fatalf("preserve-redo add must keep forward history")
	}
}

func TestUndoRedoRestoresSameChangeInstance(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	change := setValue(t, d, 7)
	addChange(t, tracker, change)

	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if d.value != 0 {
		t.Fatalf("undo did not revert value, got %d", d.value)
	}
	if err := tracker.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if d.value != 7 {
		t.Fatalf("redo did not reapply value, got %d", d.value)
	}
	if tracker.Depth() != 1 || tracker.undo[0] != change {
		t.Fatalf("undo stack top is not the original change instance")
	}
}

func TestUndoRedoEmptyStacksFail(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Undo(); !errors.Is(err, ErrNoBackwardChanges) {
		t.Fatalf("expected ErrNoBackwardChanges, got %v", err)
	}
	if err := tracker.Redo(); !errors.Is(err, ErrNoForwardChanges) {
		t.Fatalf("expected ErrNoForwardChanges, got %v", err)
	}
}

func TestUndoFailureLeavesChangeOnStack(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	change, err := track.NewPropertyChange(d,
		track.PropertyDescriptor{Item: d, Property: "value"},
		nil,
		func() error { return fmt.Errorf("stuck") },
		"unrejectable")
	if err != nil {
		t.Fatalf("NewPropertyChange: %v", err)
	}
	addChange(t, tracker, change)
	if err := tracker.Undo(); err == nil {
		t.Fatalf("expected undo failure")
	}
	if tracker.Depth() != 1 || tracker.ForwardDepth() != 0 {
		t.Fatalf("failed undo must leave stacks untouched: depth=%d forward=%d", tracker.Depth(), tracker.ForwardDepth())
	}
}

func TestSuspendDropsAdds(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	tracker.Suspend()
	if !tracker.Suspended() {
		t.Fatalf("expected suspended")
	}
	for i := 0; i < 4; i++ {
		if err := tracker.Add(setValue(t, d, i), AddDefault); err != nil {
			t.Fatalf("Add while suspended: %v", err)
		}
	}
	if tracker.Depth() != 0 {
		t.Fatalf("suspended adds must not reach the undo stack, depth=%d", tracker.Depth())
	}
	if cs := tracker.ChangeSet(); len(cs) != 0 {
		t.Fatalf("suspended adds must not appear in the change set, got %d", len(cs))
	}
	tracker.Resume()
	addChange(t, tracker, setValue(t, d, 9))
	if tracker.Depth() != 1 {
		t.Fatalf("resume must restore recording")
	}
	cs := tracker.ChangeSet()
	if len(cs) != 1 || cs[0].Description() != "set d=9" {
		t.Fatalf("unexpected change set %+v", cs)
	}
}

func TestChangeSetReturnsCopyOldestFirst(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	addChange(t, tracker, setValue(t, d, 1))
	addChange(t, tracker, setValue(t, d, 2))

	cs := tracker.ChangeSet()
	if len(cs) != 2 || cs[0].Description() != "set d=1" || cs[1].Description() != "set d=2" {
		t.Fatalf("unexpected change set %+v", cs)
	}
	cs[0] = nil
	fresh := tracker.ChangeSet()
	if fresh[0] == nil || fresh[0].Description() != "set d=1" {
		t.Fatalf("mutating the returned slice must not affect the tracker")
	}

	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if cs := tracker.ChangeSet(); len(cs) != 1 {
		t.Fatalf("change set must shrink with the undo stack, got %d", len(cs))
	}
}

func TestSuspendNests(t *testing.T) {
	tracker := NewTracker()
	tracker.Suspend()
	tracker.Suspend()
	tracker.Resume()
	if !tracker.Suspended() {
		t.Fatalf("one resume must not clear two suspends")
	}
	tracker.Resume()
	if tracker.Suspended() {
		t.Fatalf("expected resumed")
	}
}

func TestAcceptAllCommitsOldestFirstAndClearsState(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	var order []string
	for _, label := range []string{"a", "b", "c"} {
		label := label
		change, err := track.NewPropertyChange(d,
			track.PropertyDescriptor{Item: d, Property: label},
			func() error { order = append(order, label); return nil },
			func() error { return nil },
			label)
		if err != nil {
			t.Fatalf("NewPropertyChange: %v", err)
		}
		addChange(t, tracker, change)
	}
	fresh := &doc{name: "fresh"}
	if err := tracker.RegisterTransient(fresh, false); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	notified := false
	tracker.OnAccepted(func() { notified = true })

	if err := tracker.AcceptAll(); err != nil {
		t.Fatalf("AcceptAll: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("accept order must be oldest first, got %v", order)
	}
	if tracker.CanUndo() || tracker.CanRedo() || tracker.HasTransientEntities() {
		t.Fatalf("accept-all must clear stacks and registry")
	}
	if !notified {
		t.Fatalf("accepted notification missing")
	}
}

func TestRejectAllUnwindsNewestFirst(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	var order []string
	for _, label := range []string{"a", "b", "c"} {
		label := label
		change, err := track.NewPropertyChange(d,
			track.PropertyDescriptor{Item: d, Property: label},
			nil,
			func() error { order = append(order, label); return nil },
			label)
		if err != nil {
			t.Fatalf("NewPropertyChange: %v", err)
		}
		addChange(t, tracker, change)
	}
	notified := false
	tracker.OnRejected(func() { notified = true })

	if err := tracker.RejectAll(); err != nil {
		t.Fatalf("RejectAll: %v", err)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Fatalf("reject order must be newest first, got %v", order)
	}
	if tracker.CanUndo() || !notified {
		t.Fatalf("reject-all must clear history and notify")
	}
}

func TestRejectAllDropsAutoRemoveTransients(t *testing.T) {
	tracker := NewTracker()
	auto := &doc{name: "auto"}
	keep := &doc{name: "keep"}
	if err := tracker.RegisterTransient(auto, true); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	if err := tracker.RegisterTransient(keep, false); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	if err := tracker.RejectAll(); err != nil {
		t.Fatalf("RejectAll: %v", err)
	}
	if tracker.EntityState(auto).Has(StateTransient) {
		t.Fatalf("auto-remove transient must be dropped")
	}
	if !tracker.EntityState(keep).Has(StateTransient) {
		t.Fatalf("explicit transient must survive reject-all")
	}
}

func TestAcceptRejectVeto(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	addChange(t, tracker, setValue(t, d, 1))

	unsubscribe := tracker.OnAccepting(func() bool { return false })
	if err := tracker.AcceptAll(); !errors.Is(err, ErrVetoed) {
		t.Fatalf("expected ErrVetoed, got %v", err)
	}
	if tracker.Depth() != 1 {
		t.Fatalf("vetoed accept must not touch history")
	}
	unsubscribe()
	tracker.OnRejecting(func() bool { return false })
	if err := tracker.RejectAll(); !errors.Is(err, ErrVetoed) {
		t.Fatalf("expected ErrVetoed, got %v", err)
	}
	if err := tracker.AcceptAll(); err != nil {
		t.Fatalf("AcceptAll after unsubscribe: %v", err)
	}
}

func TestTransientRegistry(t *testing.T) {
	tracker := NewTracker()
	fresh := &doc{name: "fresh"}
	if err := tracker.RegisterTransient(fresh, false); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	var dup track.DuplicateTransientError
	if err := tracker.RegisterTransient(fresh, false); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTransientError, got %v", err)
	}
	tracked := &doc{name: "tracked"}
	addChange(t, tracker, setValue(t, tracked, 1))
	if err := tracker.RegisterTransient(tracked, false); err == nil {
		t.Fatalf("expected error registering entity with tracked changes")
	}
	if !tracker.HasTransientEntities() {
		t.Fatalf("expected transient entities")
	}
	if err := tracker.UnregisterTransient(fresh); err != nil {
		t.Fatalf("UnregisterTransient: %v", err)
	}
	var notTransient track.NotTransientError
	if err := tracker.UnregisterTransient(fresh); !errors.As(err, &notTransient) {
		t.Fatalf("expected NotTransientError, got %v", err)
	}
}

func TestAutoRemoveTransientDroppedAfterUndo(t *testing.T) {
	tracker := NewTracker()
	fresh := &doc{name: "fresh"}
	if err := tracker.RegisterTransient(fresh, true); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	addChange(t, tracker, setValue(t, fresh, 1))
	if !tracker.EntityState(fresh).Has(StateTransient) {
		t.Fatalf("expected transient before undo")
	}
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	state := tracker.EntityState(fresh)
	if state.Has(StateTransient) {
		t.Fatalf("auto-remove transient must be dropped after its only change is undone, state %v", state)
	}
	if !state.Has(StateHasForwardChanges) {
		t.Fatalf("undone change must show as forward, state %v", state)
	}
}

func TestEntityStateFlags(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	if tracker.EntityState(d) != StateNone {
		t.Fatalf("expected none for unknown entity")
	}
	addChange(t, tracker, setValue(t, d, 1))
	if !tracker.EntityState(d).Has(StateHasBackwardChanges) {
		t.Fatalf("expected backward flag")
	}
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	state := tracker.EntityState(d)
	if state.Has(StateHasBackwardChanges) || !state.Has(StateHasForwardChanges) {
		t.Fatalf("expected forward-only after undo, got %v", state)
	}
}

func TestEntitiesEnumeration(t *testing.T) {
	tracker := NewTracker()
	a, b := &doc{name: "a"}, &doc{name: "b"}
	addChange(t, tracker, setValue(t, a, 1))
	if err := tracker.RegisterTransient(b, false); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	entities := tracker.Entities()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0] != a {
		t.Fatalf("stack entities must come first")
	}
}

func TestBookmarkRevertUndoesToDepth(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	bookmark := tracker.CreateBookmark()
	for i := 1; i <= 5; i++ {
		addChange(t, tracker, setValue(t, d, i))
	}
	if !tracker.ValidateBookmark(bookmark) {
		t.Fatalf("bookmark should validate")
	}
	if err := tracker.RevertToBookmark(bookmark); err != nil {
		t.Fatalf("RevertToBookmark: %v", err)
	}
	if tracker.Depth() != 0 {
		t.Fatalf("revert to depth 0 must undo everything, depth=%d", tracker.Depth())
	}
	if d.value != 0 {
		t.Fatalf("entity state not restored, value=%d", d.value)
	}
}

func TestBookmarkInvalidation(t *testing.T) {
	first := NewTracker()
	second := NewTracker()
	d := &doc{name: "d"}
	addChange(t, first, setValue(t, d, 1))
	bookmark := first.CreateBookmark()

	if second.ValidateBookmark(bookmark) {
		t.Fatalf("bookmark must be bound to its issuing tracker")
	}
	if err := second.RevertToBookmark(bookmark); !errors.Is(err, ErrInvalidBookmark) {
		t.Fatalf("expected ErrInvalidBookmark, got %v", err)
	}

	if err := first.AcceptAll(); err != nil {
		t.Fatalf("AcceptAll: %v", err)
	}
	if first.ValidateBookmark(bookmark) {
		t.Fatalf("destructive clear must invalidate bookmarks")
	}
	if err := first.RevertToBookmark(bookmark); !errors.Is(err, ErrInvalidBookmark) {
		t.Fatalf("expected ErrInvalidBookmark after accept-all, got %v", err)
	}
}

func TestBookmarkDeeperThanStackInvalid(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	addChange(t, tracker, setValue(t, d, 1))
	bookmark := tracker.CreateBookmark()
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if tracker.ValidateBookmark(bookmark) {
		t.Fatalf("bookmark above current depth must not validate")
	}
}

func TestAdvisoryLastChangeWinsWithFirstEncounterOrder(t *testing.T) {
	tracker := NewTracker()
	list := &doc{name: "list"}
	a, b := &doc{name: "a"}, &doc{name: "b"}

	added, err := track.NewItemAddedChange(list, track.AddedDescriptor{Collection: list, Items: []Entity{a}}, nil, func() error { return nil }, "add a")
	if err != nil {
		t.Fatalf("NewItemAddedChange: %v", err)
	}
	addChange(t, tracker, added)
	addChange(t, tracker, setValue(t, b, 1))
	addChange(t, tracker, setValue(t, a, 2))

	plan := tracker.Advisory(nil)
	if len(plan) != 2 {
		t.Fatalf("expected 2 advised entities, got %d", len(plan))
	}
	if plan[0].Entity != a || plan[1].Entity != b {
		t.Fatalf("advisory order must follow first encounter")
	}
	if plan[0].Action != ActionUpdate {
		t.Fatalf("last change must win for a, got %v", plan[0].Action)
	}
	if plan[1].Action != ActionUpdate {
		t.Fatalf("expected update for b, got %v", plan[1].Action)
	}
}

func TestAdvisoryTransientGetsCreateFoldedIn(t *testing.T) {
	tracker := NewTracker()
	fresh := &doc{name: "fresh"}
	if err := tracker.RegisterTransient(fresh, false); err != nil {
		t.Fatalf("RegisterTransient: %v", err)
	}
	addChange(t, tracker, setValue(t, fresh, 1))
	plan := tracker.Advisory(nil)
	if len(plan) != 1 {
		t.Fatalf("expected 1 advised entity, got %d", len(plan))
	}
	if !plan[0].Action.Has(ActionCreate | ActionUpdate) {
		t.Fatalf("transient with update must advise create|update, got %v", plan[0].Action)
	}
}

func TestAdvisoryFilterNarrowsChanges(t *testing.T) {
	tracker := NewTracker()
	a, b := &doc{name: "a"}, &doc{name: "b"}
	addChange(t, tracker, setValue(t, a, 1))
	addChange(t, tracker, setValue(t, b, 2))
	plan := tracker.Advisory(func(change Change) bool { return change.Owner() == a })
	if len(plan) != 1 || plan[0].Entity != a {
		t.Fatalf("filter must narrow the advisory, got %v", plan)
	}
}

func TestAdvisoryComputedFresh(t *testing.T) {
	tracker := NewTracker()
	d := &doc{name: "d"}
	addChange(t, tracker, setValue(t, d, 1))
	if got := len(tracker.Advisory(nil)); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	if err := tracker.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := len(tracker.Advisory(nil)); got != 0 {
		t.Fatalf("advisory must reflect current history, got %d entries", got)
	}
}
