package track

// Descriptor is the immutable, strongly typed payload describing what a
// change did. The set of descriptors is closed; each concrete change variant
// carries exactly one. Descriptors hold data only.
type Descriptor interface {
	descriptor()
}

// AddedDescriptor records items appended to a tracked collection.
type AddedDescriptor struct {
	// Collection identifies the collection that grew, if the caller tracks it.
	Collection any
	// Items are the entities that were appended.
	Items []Entity
}

func (AddedDescriptor) descriptor() {}

// RemovedDescriptor records items taken out of a tracked collection.
type RemovedDescriptor struct {
	Collection any
	Items      []Entity
}

func (RemovedDescriptor) descriptor() {}

// PropertyDescriptor records a single item's property change together with
// the value it replaced.
type PropertyDescriptor struct {
	Item     Entity
	Property string
	Previous any
}

func (PropertyDescriptor) descriptor() {}

// ClearedDescriptor records a collection wipe, keeping the removed items so
// the mutation can be reversed and advised.
type ClearedDescriptor struct {
	Collection any
	Items      []Entity
}

func (ClearedDescriptor) descriptor() {}

func cloneEntities(items []Entity) []Entity {
	if items == nil {
		return nil
	}
	out := make([]Entity, len(items))
	copy(out, items)
	return out
}
