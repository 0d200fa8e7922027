package session

import (
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// AcknowledgeGeneratedKey records the store-assigned primary key id for a
// tracked entity.
//
// The id is written into the entity through the schema's key setter, the
// entity's bookkeeping moves from its provisional (or previous) key to the
// new one, its state becomes MANAGED and a fresh snapshot is taken. A nil
// schema means the one the entity was attached with.
//
// Fails with NOT_MANAGED for an untracked entity and with IDENTITY_CONFLICT
// when a different instance already occupies the new key; in both cases
// nothing changes.
func (pc *PersistenceContext) AcknowledgeGeneratedKey(entity any, s *schema.Schema, id value.Value) error {
	return pc.assignKey(entity, s, id, true)
}

func (pc *PersistenceContext) assignKey(entity any, s *schema.Schema, id value.Value, write bool) error {
	oldKey, state, err := pc.tracked(entity)
	if err != nil {
		return err
	}
	e, _ := pc.identity.get(oldKey)
	if s == nil {
		s = e.schema
	}
	if s.Type() != e.schema.Type() {
		return &Error{
			Code:    ErrCodeInvalidEntity,
			Message: "schema " + s.Type() + " does not match tracked type",
			Key:     oldKey.String(),
		}
	}
	if state != StateTransient && state != StateManaged {
		return newInvalidState(oldKey, "cannot assign a key to a %s entity", state)
	}
	if value.IsNull(id) {
		return &Error{Code: ErrCodeInvalidKey, Message: "generated key must not be null", Key: oldKey.String()}
	}

	coerced, err := value.Coerce(s.Key().Kind, id)
	if err != nil {
		return &Error{Code: ErrCodeInvalidKey, Message: "generated key does not fit the key column", Key: oldKey.String(), Err: err}
	}
	newKey := NewKey(s.Type(), coerced)
	if occupant, ok := pc.identity.get(newKey); ok && occupant.entity != entity {
		return newIdentityConflict(newKey)
	}

	if write {
		if err := s.SetKey(entity, coerced); err != nil {
			return &Error{Code: ErrCodeInvalidKey, Message: "write generated key", Key: newKey.String(), Err: err}
		}
	}
	snap, err := TakeSnapshot(entity, s)
	if err != nil {
		return &Error{Code: ErrCodeInvalidEntity, Message: "take snapshot", Key: newKey.String(), Err: err}
	}

	pc.identity.remove(oldKey)
	pc.states.remove(oldKey)
	pc.snapshots.remove(oldKey)

	pc.identity.put(newKey, &entry{entity: entity, schema: s, seq: e.seq})
	pc.states.set(newKey, StateManaged)
	pc.snapshots.put(newKey, snap)

	pc.log.Debug("entity rekeyed", "from", oldKey.String(), "to", newKey.String())
	return nil
}
