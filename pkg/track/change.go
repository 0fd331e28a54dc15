package track

import "fmt"

// CommitFunc applies a change's forward effect. Redo and accept-all both
// replay through it, so implementations must be idempotent: "ensure the
// mutation is applied", not "apply it again".
type CommitFunc func() error

// RejectFunc reverses a change's effect on the tracked object graph.
type RejectFunc func() error

// ChangeObserver receives synchronous per-change lifecycle notifications.
type ChangeObserver func(change Change, reason Reason)

// Change is a reversible record of a single mutation. Implementations form a
// closed set: the four descriptor-backed variants plus AtomicChange.
type Change interface {
	// Owner is the entity the change was recorded against. Set once at
	// construction, never reassigned. Nil for atomic composites.
	Owner() Entity
	// Description is a human-readable summary of the mutation.
	Description() string
	// ChangedEntities returns the entities this change affects (at least
	// one). Deterministic and side-effect free.
	ChangedEntities() []Entity
	// AdvisedAction returns the persistence action for entity, or an
	// UnknownEntityError when the change does not recognize it.
	AdvisedAction(entity Entity) (ProposedAction, error)
	// Commit invokes the forward callback and fires committed observers.
	Commit(reason Reason) error
	// Reject invokes the reverse callback and fires rejected observers.
	Reject(reason Reason) error
	// Clone duplicates the change's intent (owner, descriptor, callbacks,
	// description) without its observers. ErrNotSupported for composites.
	Clone() (Change, error)
	// OnCommitted subscribes fn to commit notifications.
	OnCommitted(fn ChangeObserver)
	// OnRejected subscribes fn to reject notifications.
	OnRejected(fn ChangeObserver)
}

// base carries the state shared by the descriptor-backed variants.
type base struct {
	owner       Entity
	commitFn    CommitFunc
	rejectFn    RejectFunc
	description string
	committed   []ChangeObserver
	rejected    []ChangeObserver
}

func newBase(owner Entity, commit CommitFunc, reject RejectFunc, description string) (base, error) {
	if owner == nil {
		return base{}, fmt.Errorf("track: change owner cannot be nil")
	}
	if reject == nil {
		return base{}, fmt.Errorf("track: change reject callback cannot be nil")
	}
	return base{owner: owner, commitFn: commit, rejectFn: reject, description: description}, nil
}

func (b *base) Owner() Entity                 { return b.owner }
func (b *base) Description() string           { return b.description }
func (b *base) OnCommitted(fn ChangeObserver) { b.committed = append(b.committed, fn) }
func (b *base) OnRejected(fn ChangeObserver)  { b.rejected = append(b.rejected, fn) }

func (b *base) commit(c Change, reason Reason) error {
	if b.commitFn != nil {
		if err := b.commitFn(); err != nil {
			return err
		}
	}
	for _, fn := range b.committed {
		fn(c, reason)
	}
	return nil
}

func (b *base) reject(c Change, reason Reason) error {
	if err := b.rejectFn(); err != nil {
		return err
	}
	for _, fn := range b.rejected {
		fn(c, reason)
	}
	return nil
}

// ItemAddedChange records entities appended to a collection owned by Owner.
type ItemAddedChange struct {
	base
	desc AddedDescriptor
}

// NewItemAddedChange builds an item-added change. The descriptor must name at
// least one item; items are copied so later descriptor mutation by the caller
// cannot leak in.
func NewItemAddedChange(owner Entity, desc AddedDescriptor, commit CommitFunc, reject RejectFunc, description string) (*ItemAddedChange, error) {
	b, err := newBase(owner, commit, reject, description)
	if err != nil {
		return nil, err
	}
	if len(desc.Items) == 0 {
		return nil, fmt.Errorf("track: added descriptor must carry at least one item")
	}
	desc.Items = cloneEntities(desc.Items)
	return &ItemAddedChange{base: b, desc: desc}, nil
}

// Descriptor returns the typed payload.
func (c *ItemAddedChange) Descriptor() AddedDescriptor { return c.desc }

func (c *ItemAddedChange) ChangedEntities() []Entity { return cloneEntities(c.desc.Items) }

func (c *ItemAddedChange) AdvisedAction(entity Entity) (ProposedAction, error) {
	if !containsEntity(c.desc.Items, entity) {
		return ActionNone, UnknownEntityError{Entity: entity}
	}
	return ActionCreate, nil
}

func (c *ItemAddedChange) Commit(reason Reason) error { return c.commit(c, reason) }
func (c *ItemAddedChange) Reject(reason Reason) error { return c.reject(c, reason) }

func (c *ItemAddedChange) Clone() (Change, error) {
	return NewItemAddedChange(c.owner, c.desc, c.commitFn, c.rejectFn, c.description)
}

// ItemRemovedChange records entities taken out of a collection owned by Owner.
type ItemRemovedChange struct {
	base
	desc RemovedDescriptor
}

// NewItemRemovedChange builds an item-removed change.
func NewItemRemovedChange(owner Entity, desc RemovedDescriptor, commit CommitFunc, reject RejectFunc, description string) (*ItemRemovedChange, error) {
	b, err := newBase(owner, commit, reject, description)
	if err != nil {
		return nil, err
	}
	if len(desc.Items) == 0 {
		return nil, fmt.Errorf("track: removed descriptor must carry at least one item")
	}
	desc.Items = cloneEntities(desc.Items)
	return &ItemRemovedChange{base: b, desc: desc}, nil
}

// Descriptor returns the typed payload.
func (c *ItemRemovedChange) Descriptor() RemovedDescriptor { return c.desc }

func (c *ItemRemovedChange) ChangedEntities() []Entity { return cloneEntities(c.desc.Items) }

func (c *ItemRemovedChange) AdvisedAction(entity Entity) (ProposedAction, error) {
	if !containsEntity(c.desc.Items, entity) {
		return ActionNone, UnknownEntityError{Entity: entity}
	}
	return ActionDelete, nil
}

func (c *ItemRemovedChange) Commit(reason Reason) error { return c.commit(c, reason) }
func (c *ItemRemovedChange) Reject(reason Reason) error { return c.reject(c, reason) }

func (c *ItemRemovedChange) Clone() (Change, error) {
	return NewItemRemovedChange(c.owner, c.desc, c.commitFn, c.rejectFn, c.description)
}

// PropertyChange records a single item's property mutation.
type PropertyChange struct {
	base
	desc PropertyDescriptor
}

// NewPropertyChange builds a property change. The descriptor item is the
// tracked entity; it is usually, but not necessarily, the owner.
func NewPropertyChange(owner Entity, desc PropertyDescriptor, commit CommitFunc, reject RejectFunc, description string) (*PropertyChange, error) {
	b, err := newBase(owner, commit, reject, description)
	if err != nil {
		return nil, err
	}
	if desc.Item == nil {
		return nil, fmt.Errorf("track: property descriptor must carry an item")
	}
	return &PropertyChange{base: b, desc: desc}, nil
}

// Descriptor returns the typed payload.
func (c *PropertyChange) Descriptor() PropertyDescriptor { return c.desc }

func (c *PropertyChange) ChangedEntities() []Entity { return []Entity{c.desc.Item} }

func (c *PropertyChange) AdvisedAction(entity Entity) (ProposedAction, error) {
	if entity != c.desc.Item {
		return ActionNone, UnknownEntityError{Entity: entity}
	}
	return ActionUpdate, nil
}

func (c *PropertyChange) Commit(reason Reason) error { return c.commit(c, reason) }
func (c *PropertyChange) Reject(reason Reason) error { return c.reject(c, reason) }

func (c *PropertyChange) Clone() (Change, error) {
	return NewPropertyChange(c.owner, c.desc, c.commitFn, c.rejectFn, c.description)
}

// ClearedChange records a collection wipe.
type ClearedChange struct {
	base
	desc ClearedDescriptor
}

// NewClearedChange builds a collection-cleared change. The descriptor items
// are the entities that were removed by the wipe.
func NewClearedChange(owner Entity, desc ClearedDescriptor, commit CommitFunc, reject RejectFunc, description string) (*ClearedChange, error) {
	b, err := newBase(owner, commit, reject, description)
	if err != nil {
		return nil, err
	}
	if len(desc.Items) == 0 {
		return nil, fmt.Errorf("track: cleared descriptor must carry the removed items")
	}
	desc.Items = cloneEntities(desc.Items)
	return &ClearedChange{base: b, desc: desc}, nil
}

// Descriptor returns the typed payload.
func (c *ClearedChange) Descriptor() ClearedDescriptor { return c.desc }

func (c *ClearedChange) ChangedEntities() []Entity { return cloneEntities(c.desc.Items) }

func (c *ClearedChange) AdvisedAction(entity Entity) (ProposedAction, error) {
	if !containsEntity(c.desc.Items, entity) {
		return ActionNone, UnknownEntityError{Entity: entity}
	}
	return ActionDelete, nil
}

func (c *ClearedChange) Commit(reason Reason) error { return c.commit(c, reason) }
func (c *ClearedChange) Reject(reason Reason) error { return c.reject(c, reason) }

func (c *ClearedChange) Clone() (Change, error) {
	return NewClearedChange(c.owner, c.desc, c.commitFn, c.rejectFn, c.description)
}

func containsEntity(items []Entity, entity Entity) bool {
	for _, item := range items {
		if item == entity {
			return true
		}
	}
	return false
}
