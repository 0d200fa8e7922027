package session

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// ComputeFlushPlan returns the ordered write actions needed to synchronize the
// session: INSERTs in schedule order, then UPDATEs for dirty MANAGED entities
// in attach order, then DELETEs in schedule order.
//
// Dirty entities have their stored snapshot replaced by the fresh one, so a
// second call with no intervening mutation yields no UPDATEs. Entities queued
// for insert are never dirty-checked.
//
// An empty plan is returned as nil.
func (pc *PersistenceContext) ComputeFlushPlan() ([]Action, error) {
	if pc.closed {
		return nil, errClosed
	}

	var plan []Action
	inserting := make(map[any]bool, pc.inserts.len())

	for _, entity := range pc.inserts.snapshot() {
		key, ok := pc.identity.keyOf(entity)
		if !ok {
			continue
		}
		e, _ := pc.identity.get(key)
		row, err := TakeSnapshot(entity, e.schema)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidEntity, Message: "take snapshot", Key: key.String(), Err: err}
		}
		plan = append(plan, Action{Kind: ActionInsert, Key: key, Entity: entity, Schema: e.schema, Row: row})
		inserting[entity] = true
	}

	updates, err := pc.dirtyCheck(inserting)
	if err != nil {
		return nil, err
	}
	plan = append(plan, updates...)

	for _, entity := range pc.deletes.snapshot() {
		key, ok := pc.identity.keyOf(entity)
		if !ok {
			continue
		}
		e, _ := pc.identity.get(key)
		plan = append(plan, Action{Kind: ActionDelete, Key: key, Entity: entity, Schema: e.schema, Row: Snapshot{key.ID}})
	}

	return plan, nil
}

type dirtyEntity struct {
	key   Key
	e     *entry
	fresh Snapshot
}

// dirtyCheck compares every MANAGED identity outside the insert set with its
// stored snapshot. Snapshots are only replaced once every candidate has been
// read, so an error leaves the store untouched.
func (pc *PersistenceContext) dirtyCheck(inserting map[any]bool) ([]Action, error) {
	var managed []dirtyEntity
	for key, e := range pc.identity.entries {
		if state, _ := pc.states.get(key); state != StateManaged || inserting[e.entity] {
			continue
		}
		managed = append(managed, dirtyEntity{key: key, e: e})
	}
	slices.SortFunc(managed, func(a, b dirtyEntity) int { return cmp.Compare(a.e.seq, b.e.seq) })

	dirty := managed[:0]
	for _, d := range managed {
		fresh, err := TakeSnapshot(d.e.entity, d.e.schema)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalidEntity, Message: "take snapshot", Key: d.key.String(), Err: err}
		}
		stored, _ := pc.snapshots.get(d.key)
		if fresh.Equal(stored) {
			continue
		}
		if !value.Equal(fresh[0], d.key.ID) {
			return nil, &Error{
				Code:    ErrCodeInvalidKey,
				Message: "primary key of a managed entity was changed to " + value.Format(fresh[0]),
				Type:    d.key.Type,
				Key:     d.key.String(),
			}
		}
		d.fresh = fresh
		dirty = append(dirty, d)
	}

	updates := make([]Action, 0, len(dirty))
	for _, d := range dirty {
		pc.snapshots.put(d.key, d.fresh)
		updates = append(updates, Action{Kind: ActionUpdate, Key: d.key, Entity: d.e.entity, Schema: d.e.schema, Row: d.fresh})
	}
	return updates, nil
}

// Flush computes the flush plan and hands it to p in a single call.
//
// On success generated keys are acknowledged (rekeying the inserted
// entities), inserts with client-assigned keys become MANAGED, deleted
// entities are evicted and both action queues are cleared. An empty plan
// does not reach the persister.
//
// If p fails the error is a PERSISTER_FAILURE wrapping the cause. The queues
// are kept and no snapshot is rolled back; discard the session.
func (pc *PersistenceContext) Flush(ctx context.Context, p Persister) error {
	plan, err := pc.ComputeFlushPlan()
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		pc.log.Debug("flush skipped, nothing to write")
		return nil
	}

	stats := statsFor(plan)
	stats.SessionID = pc.id
	start := time.Now()

	generated, err := p.Execute(ContextWithID(ctx, pc.id), plan)
	stats.Duration = time.Since(start)
	if err != nil {
		ferr := newPersisterFailure(len(plan), err)
		stats.Err = ferr
		pc.log.Error("flush failed", "actions", len(plan), "error", err)
		pc.notify(stats)
		return ferr
	}

	applyErr := pc.applyResults(plan, generated)
	pc.inserts.reset()
	pc.deletes.reset()

	stats.Err = applyErr
	pc.log.Info("flush complete",
		"inserts", stats.Inserts,
		"updates", stats.Updates,
		"deletes", stats.Deletes,
		"generated_keys", len(generated),
		"duration", stats.Duration,
	)
	pc.notify(stats)
	return applyErr
}

// applyResults updates bookkeeping after a successful Execute. It keeps going
// past individual failures and returns them joined.
func (pc *PersistenceContext) applyResults(plan []Action, generated []GeneratedKey) error {
	var errs []error
	keyed := make(map[any]bool, len(generated))

	for _, g := range generated {
		if err := pc.AcknowledgeGeneratedKey(g.Entity, nil, g.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		keyed[g.Entity] = true
	}

	for _, a := range plan {
		switch a.Kind {
		case ActionInsert:
			if keyed[a.Entity] {
				continue
			}
			if state, ok := pc.State(a.Entity); !ok || state != StateTransient {
				continue
			}
			if value.IsNull(a.Row[0]) {
				errs = append(errs, &Error{
					Code:    ErrCodeInvalidKey,
					Message: "persister reported no generated key for an inserted entity",
					Type:    a.Key.Type,
					Key:     a.Key.String(),
				})
				continue
			}
			if err := pc.assignKey(a.Entity, a.Schema, a.Row[0], false); err != nil {
				errs = append(errs, err)
			}
		case ActionDelete:
			if key, ok := pc.identity.keyOf(a.Entity); ok {
				pc.drop(key, a.Entity)
				pc.log.Debug("entity evicted", "key", key.String())
			}
		}
	}
	return errors.Join(errs...)
}

func (pc *PersistenceContext) notify(stats FlushStats) {
	for _, o := range pc.observers {
		o.ObserveFlush(stats)
	}
}
