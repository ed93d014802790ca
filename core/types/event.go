package types

// Event is the wire form of a ledger event: a type name such as
// "cash.locked" and its string attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns a copy that shares no attribute map with e.
func (e Event) Clone() Event {
	out := Event{Type: e.Type, Attributes: make(map[string]string, len(e.Attributes))}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return out
}
