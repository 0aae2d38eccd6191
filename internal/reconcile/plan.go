// Package reconcile decides how each payload reaches the remote calendar.
package reconcile

import "gdqcal/internal/document"

// Kind is the remote operation to perform for a payload.
type Kind int

const (
	Create Kind = iota
	Update
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	default:
		return "unknown"
	}
}

// Op is a single queued remote operation.
type Op struct {
	Kind    Kind
	Payload document.Payload
}

// IDSet is the set of entry ids already present on a remote calendar.
type IDSet map[string]struct{}

// NewIDSet builds an IDSet from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Plan emits one op per payload, in input order: Update when the payload's id
// already exists remotely, Create otherwise. Content is never compared, so an
// unchanged entry is still updated.
func Plan(payloads []document.Payload, existing IDSet) []Op {
	ops := make([]Op, 0, len(payloads))
	for _, p := range payloads {
		kind := Create
		if existing.Has(p.ID) {
			kind = Update
		}
		ops = append(ops, Op{Kind: kind, Payload: p})
	}
	return ops
}

// Stale returns the existing ids no payload refers to, in no particular
// order. These entries are left untouched on the remote calendar.
func Stale(payloads []document.Payload, existing IDSet) []string {
	wanted := make(map[string]struct{}, len(payloads))
	for _, p := range payloads {
		wanted[p.ID] = struct{}{}
	}
	var stale []string
	for id := range existing {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}
