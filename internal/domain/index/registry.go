// Package index maintains the bijection between external identifiers and
// the dense integer indices used for matrix rows and columns.
package index

import "fmt"

// Registry assigns consecutive indices starting at 0 in first-seen order.
// An index, once assigned, is never reused or reassigned. Players and
// questions each get their own independent Registry.
//
// Registry is not safe for concurrent use; the owning aggregate serializes
// access.
type Registry struct {
	toIndex map[string]int
	toID    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{toIndex: make(map[string]int)}
}

// RestoreRegistry rebuilds a registry from its index-ordered id list,
// e.g. when loading a snapshot.
func RestoreRegistry(ids []string) *Registry {
	r := NewRegistry()
	r.Register(ids...)
	return r
}

// Register records each id not already present, assigning it the next
// unused index. Known ids are skipped, so registration is idempotent and
// duplicates within one call cannot corrupt the mapping: the first
// occurrence wins.
func (r *Registry) Register(ids ...string) {
	for _, id := range ids {
		if _, ok := r.toIndex[id]; ok {
			continue
		}
		r.toIndex[id] = len(r.toID)
		r.toID = append(r.toID, id)
	}
}

// Index returns the dense index assigned to id.
func (r *Registry) Index(id string) (int, error) {
	ix, ok := r.toIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	return ix, nil
}

// ID returns the external identifier assigned to ix.
func (r *Registry) ID(ix int) (string, error) {
	if ix < 0 || ix >= len(r.toID) {
		return "", fmt.Errorf("%w: %d", ErrUnknownIndex, ix)
	}
	return r.toID[ix], nil
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	return len(r.toID)
}

// IDs returns a copy of the id list in index order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.toID))
	copy(out, r.toID)
	return out
}
