package track

import "encoding/json"

// Payload wraps a JSON snapshot of an entity recorded alongside a journal
// entry. Bytes are cloned on the way in and out so shared state cannot be
// mutated through the wrapper.
type Payload struct {
	defined bool
	raw     json.RawMessage
}

// NewPayload builds a payload from raw JSON. Passing nil yields a defined but
// empty payload; use UndefinedPayload for "not set".
func NewPayload(raw json.RawMessage) Payload {
	p := Payload{defined: true}
	if raw != nil {
		p.raw = cloneRawMessage(raw)
	}
	return p
}

// NewPayloadFromValue marshals a typed value into a Payload.
func NewPayloadFromValue[T any](value T) (Payload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Payload{}, err
	}
	return NewPayload(raw), nil
}

// UndefinedPayload returns an uninitialized wrapper.
func UndefinedPayload() Payload { return Payload{} }

// Defined reports whether the payload has been initialized.
func (p Payload) Defined() bool { return p.defined }

// IsEmpty reports whether the payload contains no bytes.
func (p Payload) IsEmpty() bool {
	return !p.defined || len(p.raw) == 0
}

// Raw returns a cloned copy of the underlying JSON. Nil when the payload is
// undefined or empty.
func (p Payload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return cloneRawMessage(p.raw)
}

func cloneRawMessage(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}
