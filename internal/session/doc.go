// Package session implements the persistence context: the per-session unit of
// work that tracks entity identity, lifecycle state and in-memory mutation,
// and turns them into an ordered list of write actions on flush.
//
// A PersistenceContext composes four bookkeeping components:
//
//   - identity map: (type, primary key) to entity instance, at most one
//     instance per key
//   - snapshot store: the field-value vector captured when an entity became
//     MANAGED, used for dirty checking
//   - state tracker: TRANSIENT, MANAGED, DETACHED or REMOVED per key
//   - action queues: explicit INSERT and DELETE requests, FIFO
//
// Entities are never instrumented. Callers mutate them directly and the
// context detects changes by comparing a fresh snapshot with the stored one
// when a flush plan is computed. The flush plan is always ordered
//
//	INSERTs (schedule order), UPDATEs (attach order), DELETEs (schedule order)
//
// A Persister executes the plan against a store and reports generated keys.
// The context then rekeys newly inserted entities, evicts deleted ones and
// clears both queues.
//
// Concurrency: a PersistenceContext is owned by exactly one session and is not
// safe for concurrent use. Confine it to one goroutine or serialize access.
//
// Failure: when the persister fails the error is returned as a
// PERSISTER_FAILURE, queues are left as they were and snapshots replaced by the
// dirty check stay replaced. The caller is expected to discard the session.
package session
