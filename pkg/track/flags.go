// Package track defines the public model of the change-tracking engine:
// reversible changes and their descriptors, the atomic composite, tracking
// and action flag sets, and the journal contract consumed by persistence
// layers. The orchestrating service lives in internal/core.
package track

import (
	"fmt"
	"strings"
)

// Entity is an opaque reference under change tracking. The engine never
// inspects entity contents; identity is the == comparison, so entities must
// be comparable values. Pointers are the common case.
type Entity = any

// TrackingState classifies an entity inside a tracker. It is a set of flags.
type TrackingState uint8

const (
	// StateTransient marks an entity registered as newly created and not yet
	// committed to storage.
	StateTransient TrackingState = 1 << iota
	// StateAutoRemove marks a transient entity that is unregistered
	// automatically once its last associated change is undone or rejected.
	StateAutoRemove
	// StateHasBackwardChanges means at least one change affecting the entity
	// sits on the undo stack.
	StateHasBackwardChanges
	// StateHasForwardChanges means at least one change affecting the entity
	// sits on the redo stack.
	StateHasForwardChanges
)

// StateNone is the empty classification.
const StateNone TrackingState = 0

// Has reports whether every flag in mask is set.
func (s TrackingState) Has(mask TrackingState) bool { return s&mask == mask }

// String renders the flag set as a pipe-separated list.
func (s TrackingState) String() string {
	if s == StateNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag TrackingState
		name string
	}{
		{StateTransient, "transient"},
		{StateAutoRemove, "auto-remove"},
		{StateHasBackwardChanges, "backward"},
		{StateHasForwardChanges, "forward"},
	} {
		if s.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ProposedAction is the persistence action advised for an entity. Actions
// combine: a transient entity with a recorded update is advised
// ActionCreate|ActionUpdate.
type ProposedAction uint8

const (
	// ActionCreate advises inserting the entity into storage.
	ActionCreate ProposedAction = 1 << iota
	// ActionUpdate advises rewriting the entity's stored state.
	ActionUpdate
	// ActionDelete advises removing the entity from storage.
	ActionDelete
)

// ActionNone is the empty action set.
const ActionNone ProposedAction = 0

// Has reports whether every flag in mask is set.
func (a ProposedAction) Has(mask ProposedAction) bool { return a&mask == mask }

// String renders the action set as a pipe-separated list, e.g. "create|update".
func (a ProposedAction) String() string {
	if a == ActionNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag ProposedAction
		name string
	}{
		{ActionCreate, "create"},
		{ActionUpdate, "update"},
		{ActionDelete, "delete"},
	} {
		if a.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseProposedAction decodes the String form back into a flag set.
func ParseProposedAction(s string) (ProposedAction, error) {
	if s == "none" {
		return ActionNone, nil
	}
	var out ProposedAction
	for _, part := range strings.Split(s, "|") {
		switch part {
		case "create":
			out |= ActionCreate
		case "update":
			out |= ActionUpdate
		case "delete":
			out |= ActionDelete
		default:
			return ActionNone, fmt.Errorf("unknown proposed action %q", part)
		}
	}
	return out, nil
}

// Reason explains why a change is being committed or rejected.
type Reason string

const (
	// ReasonUndo accompanies a reject triggered by stepping backward.
	ReasonUndo Reason = "undo"
	// ReasonRedo accompanies a commit triggered by replaying forward.
	ReasonRedo Reason = "redo"
	// ReasonAccept accompanies commits performed while accepting all changes.
	ReasonAccept Reason = "accept"
	// ReasonReject accompanies rejects performed while rejecting all changes.
	ReasonReject Reason = "reject"
	// ReasonCancel accompanies rejects performed when an atomic operation is
	// cancelled.
	ReasonCancel Reason = "cancel"
)

// AddBehavior controls what happens to the forward history when a change is
// recorded.
type AddBehavior int

const (
	// AddDefault clears the redo stack: once a new change is recorded the
	// forward history is no longer reachable.
	AddDefault AddBehavior = iota
	// AddPreserveRedo keeps the redo stack intact. Used when a change is
	// pushed back during a redo replay.
	AddPreserveRedo
)
