// Package harness runs YAML flush scenarios against a persistence context.
//
// A scenario declares its entity types in CUE, drives a session through a
// list of steps and asserts on the recorded flush plans and the final
// session contents.
//
// # Scenario Format
//
//	name: ordering
//	description: "Inserts, updates and deletes flush in that order"
//	entities: |
//	  entity: User: {
//	    table: "users"
//	    key:   "id"
//	    columns: [{name: "id", kind: "int"}, {name: "name", kind: "string"}]
//	  }
//	steps:
//	  - op: attach
//	    ref: alice
//	    entity: User
//	    state: transient
//	    values: {name: alice}
//	  - op: insert
//	    ref: alice
//	  - op: flush
//	assertions:
//	  - type: plan
//	    flush: 0
//	    actions: ["INSERT User#<new>"]
//	  - type: lookup
//	    entity: User
//	    id: 1
//	    ref: alice
//
// entities_dir may replace the inline entities block; it names a directory
// of CUE files relative to the scenario file.
//
// # Steps
//
//   - attach: create a record of entity with values and attach it (state
//     managed or transient, default managed)
//   - insert, delete, remove, detach: ScheduleInsert, ScheduleDelete,
//     MarkRemoved and Detach on ref
//   - set: overwrite column values of ref
//   - flush: flush to the persister; fail makes the persister return that error
//   - clear: clear the session
//
// Each step may name the error code it expects with expect_error.
//
// # Assertion Types
//
//   - plan: the actions of the n-th flush that reached the persister
//   - state: the lifecycle state of ref, or UNTRACKED
//   - lookup: whether (entity, id) resolves, and to which ref
//   - size: the number of tracked entities
//
// By default flushes go to an in-memory recording persister that assigns
// integer keys 1, 2, 3, ... to inserts without a key, so plans and keys are
// reproducible across runs.
package harness
