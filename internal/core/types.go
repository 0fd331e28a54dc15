package core

import "trackcore/pkg/track"

type (
	Entity         = track.Entity
	TrackingState  = track.TrackingState
	ProposedAction = track.ProposedAction
	Reason         = track.Reason
	AddBehavior    = track.AddBehavior
	Change         = track.Change
	ChangeObserver = track.ChangeObserver
	AtomicChange   = track.AtomicChange
	Filter         = track.Filter
	Payload        = track.Payload
	AdvisedEntity  = track.AdvisedEntity
	Advisory       = track.Advisory
	JournalEntry   = track.JournalEntry
	Journal        = track.Journal
)

const (
	StateNone               = track.StateNone
	StateTransient          = track.StateTransient
	StateAutoRemove         = track.StateAutoRemove
	StateHasBackwardChanges = track.StateHasBackwardChanges
	StateHasForwardChanges  = track.StateHasForwardChanges
)

const (
	ActionNone   = track.ActionNone
	ActionCreate = track.ActionCreate
	ActionUpdate = track.ActionUpdate
	ActionDelete = track.ActionDelete
)

const (
	AddDefault      = track.AddDefault
	AddPreserveRedo = track.AddPreserveRedo
)

var (
	ErrNotSupported      = track.ErrNotSupported
	ErrNoBackwardChanges = track.ErrNoBackwardChanges
	ErrNoForwardChanges  = track.ErrNoForwardChanges
	ErrOperationActive   = track.ErrOperationActive
	ErrOperationClosed   = track.ErrOperationClosed
	ErrVetoed            = track.ErrVetoed
	ErrInvalidBookmark   = track.ErrInvalidBookmark
)
