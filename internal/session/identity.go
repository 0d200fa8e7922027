package session

import "github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"

// entry is one identity-map slot.
type entry struct {
	entity any
	schema *schema.Schema
	seq    int64 // Attach order; preserved across rekeying
}

// identityMap maps identity keys to entity instances and, in reverse, entity
// references to their current key.
//
// The reverse index makes rekeying and state lookup by reference O(1). It also
// serves as the pending-insert index: a TRANSIENT entity is found by reference
// even while it sits under a provisional key.
type identityMap struct {
	entries map[Key]*entry
	refs    map[any]Key
}

func newIdentityMap() *identityMap {
	return &identityMap{
		entries: make(map[Key]*entry),
		refs:    make(map[any]Key),
	}
}

// put registers e under k. The caller has already checked for conflicts.
func (m *identityMap) put(k Key, e *entry) {
	m.entries[k] = e
	m.refs[e.entity] = k
}

func (m *identityMap) get(k Key) (*entry, bool) {
	e, ok := m.entries[k]
	return e, ok
}

func (m *identityMap) contains(k Key) bool {
	_, ok := m.entries[k]
	return ok
}

// keyOf returns the key an entity reference is currently tracked under.
func (m *identityMap) keyOf(entity any) (Key, bool) {
	k, ok := m.refs[entity]
	return k, ok
}

func (m *identityMap) remove(k Key) {
	if e, ok := m.entries[k]; ok {
		delete(m.refs, e.entity)
		delete(m.entries, k)
	}
}

func (m *identityMap) len() int { return len(m.entries) }
