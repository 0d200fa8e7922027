package session

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// PersistenceContext is the unit of work of one session.
//
// Bookkeeping invariants:
//   - at most one identity-map entry per Key
//   - every tracked Key has exactly one state entry
//   - every MANAGED Key has exactly one snapshot; TRANSIENT and REMOVED
//     identities have none or a stale one that is never dirty-checked
//   - entities queued for insert never take part in dirty checking
type PersistenceContext struct {
	id     string
	log    *slog.Logger
	tokens TokenGenerator
	clock  *Clock

	identity  *identityMap
	snapshots *snapshotStore
	states    *stateTracker
	inserts   *actionQueue
	deletes   *actionQueue

	observers []FlushObserver
	closed    bool
}

// New creates an empty persistence context.
func New(opts ...Option) *PersistenceContext {
	pc := &PersistenceContext{
		log:       slog.New(slog.DiscardHandler),
		tokens:    UUIDv7Generator{},
		clock:     NewClock(),
		identity:  newIdentityMap(),
		snapshots: newSnapshotStore(),
		states:    newStateTracker(),
		inserts:   newActionQueue(),
		deletes:   newActionQueue(),
	}
	for _, opt := range opts {
		opt(pc)
	}
	if pc.id == "" {
		pc.id = pc.tokens.Generate()
	}
	pc.log = pc.log.With("session", pc.id)
	return pc
}

// ID returns the session id.
func (pc *PersistenceContext) ID() string {
	return pc.id
}

// Attach registers entity with the context.
//
// With StateManaged the entity is treated as freshly loaded: its primary key
// must be set and a snapshot is taken immediately. With StateTransient the
// entity is new; it is registered under its current key, or under a
// provisional key when none is assigned yet.
//
// Re-attaching an instance already tracked under the same key is a no-op
// when initial agrees with its tracked state; a REMOVED entity re-attached
// as MANAGED also stays as it is. Any other re-attach is rejected.
// Attaching a different instance under an occupied key fails with
// IDENTITY_CONFLICT and leaves the existing entry untouched.
func (pc *PersistenceContext) Attach(entity any, s *schema.Schema, initial State) error {
	if pc.closed {
		return errClosed
	}
	if err := checkEntity(entity, s); err != nil {
		return err
	}
	if initial != StateManaged && initial != StateTransient {
		return &Error{
			Code:    ErrCodeInvalidState,
			Message: "initial state must be MANAGED or TRANSIENT, got " + initial.String(),
			Type:    s.Type(),
		}
	}

	id, err := s.KeyOf(entity)
	if err != nil {
		return &Error{Code: ErrCodeInvalidEntity, Message: "read primary key", Type: s.Type(), Err: err}
	}

	if current, tracked := pc.identity.keyOf(entity); tracked {
		return pc.reattach(current, s, id, initial)
	}

	var key Key
	switch {
	case !value.IsNull(id):
		key = NewKey(s.Type(), id)
	case initial == StateManaged:
		return &Error{
			Code:    ErrCodeInvalidKey,
			Message: "a managed entity needs an assigned primary key",
			Type:    s.Type(),
		}
	default:
		key = provisionalKey(s.Type(), pc.tokens.Generate())
	}

	if existing, ok := pc.identity.get(key); ok && existing.entity != entity {
		return newIdentityConflict(key)
	}

	var snap Snapshot
	if initial == StateManaged {
		snap, err = TakeSnapshot(entity, s)
		if err != nil {
			return &Error{Code: ErrCodeInvalidEntity, Message: "take snapshot", Key: key.String(), Err: err}
		}
	}

	pc.identity.put(key, &entry{entity: entity, schema: s, seq: pc.clock.Next()})
	pc.states.set(key, initial)
	if snap != nil {
		pc.snapshots.put(key, snap)
	}

	pc.log.Debug("entity attached", "key", key.String(), "state", initial.String())
	return nil
}

// reattach decides an Attach call for an entity that is already tracked.
func (pc *PersistenceContext) reattach(current Key, s *schema.Schema, id value.Value, initial State) error {
	same := current.Type == s.Type() && current.Provisional() == value.IsNull(id)
	if !same || (!current.Provisional() && current != NewKey(s.Type(), id)) {
		return newInvalidState(current, "entity is already tracked under another key")
	}

	state, _ := pc.states.get(current)
	switch {
	case state == initial:
		return nil
	case initial == StateManaged && state == StateRemoved:
		return nil
	case initial == StateManaged && current.Provisional():
		return &Error{
			Code:    ErrCodeInvalidKey,
			Message: "a managed entity needs an assigned primary key",
			Type:    s.Type(),
			Key:     current.String(),
		}
	default:
		return newInvalidState(current, "entity is already tracked as %s, cannot re-attach as %s", state, initial)
	}
}

// Lookup returns the instance tracked under (typ, id).
// A Null id never matches, so entities awaiting a generated key are not found.
func (pc *PersistenceContext) Lookup(typ string, id value.Value) (any, bool) {
	if pc.closed || value.IsNull(id) {
		return nil, false
	}
	e, ok := pc.identity.get(NewKey(typ, id))
	if !ok {
		return nil, false
	}
	return e.entity, true
}

// Contains reports whether an instance is tracked under (typ, id).
func (pc *PersistenceContext) Contains(typ string, id value.Value) bool {
	if pc.closed || value.IsNull(id) {
		return false
	}
	return pc.identity.contains(NewKey(typ, id))
}

// State returns the lifecycle state of a tracked entity.
func (pc *PersistenceContext) State(entity any) (State, bool) {
	k, ok := pc.identity.keyOf(entity)
	if !ok {
		return 0, false
	}
	return pc.states.get(k)
}

// KeyOf returns the identity key entity is tracked under.
func (pc *PersistenceContext) KeyOf(entity any) (Key, bool) {
	return pc.identity.keyOf(entity)
}

// MarkRemoved moves a MANAGED entity to REMOVED and queues its DELETE.
// Marking an already REMOVED entity again does nothing.
func (pc *PersistenceContext) MarkRemoved(entity any) error {
	key, state, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	switch state {
	case StateRemoved:
		return nil
	case StateManaged:
	default:
		return newInvalidState(key, "cannot remove a %s entity", state)
	}
	pc.states.set(key, StateRemoved)
	pc.deletes.push(entity)
	pc.log.Debug("entity marked removed", "key", key.String())
	return nil
}

// ScheduleInsert queues a TRANSIENT entity for INSERT.
// Scheduling the same entity twice yields two INSERT actions.
func (pc *PersistenceContext) ScheduleInsert(entity any) error {
	key, state, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	if state != StateTransient {
		return newInvalidState(key, "only a TRANSIENT entity can be scheduled for insert, entity is %s", state)
	}
	pc.inserts.push(entity)
	pc.log.Debug("insert scheduled", "key", key.String())
	return nil
}

// ScheduleDelete queues a MANAGED or REMOVED entity for DELETE and sets its
// state to REMOVED. Unlike MarkRemoved it always enqueues.
func (pc *PersistenceContext) ScheduleDelete(entity any) error {
	key, state, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	if state != StateManaged && state != StateRemoved {
		return newInvalidState(key, "cannot delete a %s entity", state)
	}
	pc.states.set(key, StateRemoved)
	pc.deletes.push(entity)
	pc.log.Debug("delete scheduled", "key", key.String())
	return nil
}

// Detach stops observing a MANAGED entity. Its identity, state and snapshot
// entries are dropped; re-admitting it needs a fresh Attach.
func (pc *PersistenceContext) Detach(entity any) error {
	key, state, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	if !CanTransition(state, StateDetached) {
		return newInvalidState(key, "cannot detach a %s entity", state)
	}
	pc.drop(key, entity)
	pc.log.Debug("entity detached", "key", key.String())
	return nil
}

// Evict drops every trace of entity from the context: identity, state,
// snapshot and any queued actions. Flush evicts entities whose DELETE was
// executed.
func (pc *PersistenceContext) Evict(entity any) error {
	key, _, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	pc.drop(key, entity)
	pc.log.Debug("entity evicted", "key", key.String())
	return nil
}

// Clear drops all tracked entities and pending actions. The session stays
// usable.
func (pc *PersistenceContext) Clear() {
	pc.identity = newIdentityMap()
	pc.snapshots = newSnapshotStore()
	pc.states = newStateTracker()
	pc.inserts.reset()
	pc.deletes.reset()
	pc.log.Debug("context cleared")
}

// Size returns the number of tracked identities, provisional ones included.
func (pc *PersistenceContext) Size() int {
	return pc.identity.len()
}

// Pending returns the number of queued INSERT and DELETE requests.
func (pc *PersistenceContext) Pending() (inserts, deletes int) {
	return pc.inserts.len(), pc.deletes.len()
}

// Close ends the session. Every tracked entity becomes detached and later
// operations fail with INVALID_STATE.
func (pc *PersistenceContext) Close() {
	if pc.closed {
		return
	}
	n := pc.Size()
	pc.Clear()
	pc.closed = true
	pc.log.Debug("session closed", "detached", n)
}

// Closed reports whether Close has been called.
func (pc *PersistenceContext) Closed() bool {
	return pc.closed
}

func (pc *PersistenceContext) tracked(entity any) (Key, State, error) {
	if pc.closed {
		return Key{}, 0, errClosed
	}
	key, ok := pc.identity.keyOf(entity)
	if !ok {
		return Key{}, 0, newNotManaged(entity)
	}
	state, _ := pc.states.get(key)
	return key, state, nil
}

func (pc *PersistenceContext) drop(key Key, entity any) {
	pc.identity.remove(key)
	pc.states.remove(key)
	pc.snapshots.remove(key)
	pc.inserts.drop(entity)
	pc.deletes.drop(entity)
}

// checkEntity requires a non-nil pointer; identity is by reference.
func checkEntity(entity any, s *schema.Schema) error {
	if s == nil {
		return &Error{Code: ErrCodeInvalidEntity, Message: "schema must not be nil"}
	}
	rv := reflect.ValueOf(entity)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &Error{
			Code:    ErrCodeInvalidEntity,
			Message: fmt.Sprintf("entity must be a non-nil pointer, got %T", entity),
			Type:    s.Type(),
		}
	}
	return nil
}
