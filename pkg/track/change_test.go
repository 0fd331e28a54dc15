package track

import (
	"errors"
	"fmt"
	"testing"
)

type item struct {
	name string
}

func noopReject() error { return nil }

func TestNewItemAddedChangeValidation(t *testing.T) {
	owner := &item{name: "list"}
	if _, err := NewItemAddedChange(nil, AddedDescriptor{Items: []Entity{&item{}}}, nil, noopReject, "x"); err == nil {
		t.Fatalf("expected error for nil owner")
	}
	if _, err := NewItemAddedChange(owner, AddedDescriptor{Items: []Entity{&item{}}}, nil, nil, "x"); err == nil {
		t.Fatalf("expected error for nil reject callback")
	}
	if _, err := NewItemAddedChange(owner, AddedDescriptor{}, nil, noopReject, "x"); err == nil {
		t.Fatalf("expected error for empty items")
	}
}

func TestItemAddedChangeAdvisesCreate(t *testing.T) {
	owner := &item{name: "list"}
	a, b := &item{name: "a"}, &item{name: "b"}
	change, err := NewItemAddedChange(owner, AddedDescriptor{Collection: owner, Items: []Entity{a, b}}, nil, noopReject, "add a+b")
	if err != nil {
		t.Fatalf("NewItemAddedChange: %v", err)
	}
	if change.Owner() != owner {
		t.Fatalf("unexpected owner")
	}
	if got := len(change.ChangedEntities()); got != 2 {
		t.Fatalf("expected 2 changed entities, got %d", got)
	}
	action, err := change.AdvisedAction(a)
	if err != nil || action != ActionCreate {
		t.Fatalf("expected create for a, got %v err %v", action, err)
	}
	if _, err := change.AdvisedAction(&item{name: "stranger"}); err == nil {
		t.Fatalf("expected UnknownEntityError for unrelated entity")
	}
	var unknown UnknownEntityError
	_, err = change.AdvisedAction(owner)
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEntityError for owner itself, got %v", err)
	}
}

func TestItemRemovedAndClearedAdviseDelete(t *testing.T) {
	owner := &item{name: "list"}
	victim := &item{name: "v"}
	removed, err := NewItemRemovedChange(owner, RemovedDescriptor{Items: []Entity{victim}}, nil, noopReject, "remove")
	if err != nil {
		t.Fatalf("NewItemRemovedChange: %v", err)
	}
	if action, _ := removed.AdvisedAction(victim); action != ActionDelete {
		t.Fatalf("expected delete, got %v", action)
	}
	cleared, err := NewClearedChange(owner, ClearedDescriptor{Collection: owner, Items: []Entity{victim}}, nil, noopReject, "clear")
	if err != nil {
		t.Fatalf("NewClearedChange: %v", err)
	}
	if action, _ := cleared.AdvisedAction(victim); action != ActionDelete {
		t.Fatalf("expected delete, got %v", action)
	}
}

func TestPropertyChangeAdvisesUpdate(t *testing.T) {
	owner := &item{name: "thing"}
	change, err := NewPropertyChange(owner, PropertyDescriptor{Item: owner, Property: "name", Previous: "old"}, nil, noopReject, "rename")
	if err != nil {
		t.Fatalf("NewPropertyChange: %v", err)
	}
	if action, _ := change.AdvisedAction(owner); action != ActionUpdate {
		t.Fatalf("expected update, got %v", action)
	}
	if _, err := NewPropertyChange(owner, PropertyDescriptor{}, nil, noopReject, "bad"); err == nil {
		t.Fatalf("expected error for missing descriptor item")
	}
}

func TestCommitAndRejectFireObservers(t *testing.T) {
	owner := &item{name: "thing"}
	committed := 0
	rejected := 0
	change, err := NewPropertyChange(owner, PropertyDescriptor{Item: owner, Property: "p"},
		func() error { committed++; return nil },
		func() error { rejected++; return nil },
		"p change")
	if err != nil {
		t.Fatalf("NewPropertyChange: %v", err)
	}
	var observed []Reason
	change.OnCommitted(func(_ Change, reason Reason) { observed = append(observed, reason) })
	change.OnRejected(func(_ Change, reason Reason) { observed = append(observed, reason) })

	if err := change.Commit(ReasonRedo); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := change.Reject(ReasonUndo); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if committed != 1 || rejected != 1 {
		t.Fatalf("callbacks: committed=%d rejected=%d", committed, rejected)
	}
	if len(observed) != 2 || observed[0] != ReasonRedo || observed[1] != ReasonUndo {
		t.Fatalf("unexpected observer reasons %v", observed)
	}
}

func TestCommitErrorSkipsObservers(t *testing.T) {
	owner := &item{name: "thing"}
	change, err := NewPropertyChange(owner, PropertyDescriptor{Item: owner, Property: "p"},
		func() error { return fmt.Errorf("boom") },
		noopReject,
		"failing")
	if err != nil {
		t.Fatalf("NewPropertyChange: %v", err)
	}
	fired := false
	change.OnCommitted(func(Change, Reason) { fired = true })
	if err := change.Commit(ReasonAccept); err == nil {
		t.Fatalf("expected commit error")
	}
	if fired {
		t.Fatalf("observer must not fire on failed commit")
	}
}

func TestCloneDropsObservers(t *testing.T) {
	owner := &item{name: "list"}
	entity := &item{name: "a"}
	change, err := NewItemAddedChange(owner, AddedDescriptor{Items: []Entity{entity}}, nil, noopReject, "add")
	if err != nil {
		t.Fatalf("NewItemAddedChange: %v", err)
	}
	fired := false
	change.OnCommitted(func(Change, Reason) { fired = true })

	cloned, err := change.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if cloned.Owner() != owner || cloned.Description() != "add" {
		t.Fatalf("clone lost owner or description")
	}
	if err := cloned.Commit(ReasonAccept); err != nil {
		t.Fatalf("clone commit: %v", err)
	}
	if fired {
		t.Fatalf("original observer must not fire through clone")
	}
	if action, _ := cloned.AdvisedAction(entity); action != ActionCreate {
		t.Fatalf("clone lost descriptor")
	}
}

func TestDescriptorItemsAreCopied(t *testing.T) {
	owner := &item{name: "list"}
	entity := &item{name: "a"}
	items := []Entity{entity}
	change, err := NewItemAddedChange(owner, AddedDescriptor{Items: items}, nil, noopReject, "add")
	if err != nil {
		t.Fatalf("NewItemAddedChange: %v", err)
	}
	items[0] = &item{name: "swapped"}
	if action, err := change.AdvisedAction(entity); err != nil || action != ActionCreate {
		t.Fatalf("caller mutation leaked into descriptor")
	}
}
