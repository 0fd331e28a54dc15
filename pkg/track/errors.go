package track

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned by operations a change variant cannot
	// meaningfully perform, such as cloning an atomic composite.
	ErrNotSupported = errors.New("track: operation not supported")
	// ErrNoBackwardChanges is returned by Undo when the undo stack is empty.
	ErrNoBackwardChanges = errors.New("track: no backward changes to undo")
	// ErrNoForwardChanges is returned by Redo when the redo stack is empty.
	ErrNoForwardChanges = errors.New("track: no forward changes to redo")
	// ErrOperationActive is returned when an atomic operation is begun, or a
	// bulk stack operation attempted, while another atomic scope is open.
	ErrOperationActive = errors.New("track: an atomic operation is already active")
	// ErrOperationClosed is returned when a completed or cancelled atomic
	// operation is closed again.
	ErrOperationClosed = errors.New("track: atomic operation already closed")
	// ErrVetoed is returned when a subscribed observer cancels a bulk accept
	// or reject before it proceeds.
	ErrVetoed = errors.New("track: operation vetoed by observer")
	// ErrInvalidBookmark is returned when reverting to a bookmark that was
	// issued by another tracker or invalidated by a destructive clear.
	ErrInvalidBookmark = errors.New("track: bookmark is not valid for this tracker")
)

// UnknownEntityError reports an advised-action request for an entity the
// change does not recognize.
type UnknownEntityError struct {
	Entity Entity
}

func (e UnknownEntityError) Error() string {
	return fmt.Sprintf("track: entity %v is not covered by this change", e.Entity)
}

// DuplicateTransientError reports a transient registration for an entity that
// is already registered.
type DuplicateTransientError struct {
	Entity Entity
}

func (e DuplicateTransientError) Error() string {
	return fmt.Sprintf("track: entity %v is already registered as transient", e.Entity)
}

// NotTransientError reports an unregister call for an entity that is not in
// the transient registry.
type NotTransientError struct {
	Entity Entity
}

func (e NotTransientError) Error() string {
	return fmt.Sprintf("track: entity %v is not registered as transient", e.Entity)
}
