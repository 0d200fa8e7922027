package session

import (
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Snapshot is an ordered vector of field values: the primary key first, then
// every readable column in schema order.
type Snapshot []value.Value

// Equal compares two snapshots element-wise by value.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !value.Equal(s[i], other[i]) {
			return false
		}
	}
	return true
}

// Object pairs the snapshot with the schema's column names.
// A key-only snapshot yields a one-column object.
func (s Snapshot) Object(sch *schema.Schema) value.Object {
	fields := sch.Fields()
	obj := make(value.Object, len(s))
	for i, v := range s {
		if i < len(fields) {
			obj[fields[i].Column] = v
		}
	}
	return obj
}

// TakeSnapshot reads the current field values of entity in snapshot order.
func TakeSnapshot(entity any, sch *schema.Schema) (Snapshot, error) {
	fields := sch.Fields()
	snap := make(Snapshot, 0, len(fields))
	for _, f := range fields {
		v, err := f.Read(entity)
		if err != nil {
			return nil, err
		}
		snap = append(snap, v)
	}
	return snap, nil
}

// snapshotStore holds the baseline snapshot per MANAGED identity.
type snapshotStore struct {
	snaps map[Key]Snapshot
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{snaps: make(map[Key]Snapshot)}
}

func (s *snapshotStore) get(k Key) (Snapshot, bool) {
	snap, ok := s.snaps[k]
	return snap, ok
}

func (s *snapshotStore) put(k Key, snap Snapshot) { s.snaps[k] = snap }

func (s *snapshotStore) remove(k Key) { delete(s.snaps, k) }

func (s *snapshotStore) len() int { return len(s.snaps) }
