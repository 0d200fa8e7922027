package session

import (
	"context"
	"fmt"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// ActionKind is the kind of write an Action requests.
type ActionKind string

const (
	ActionInsert ActionKind = "INSERT"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
)

// Action is one write in a flush plan.
type Action struct {
	Kind ActionKind
	// Key is the identity key at plan time. Provisional for inserts whose
	// primary key is still unassigned.
	Key    Key
	Entity any
	Schema *schema.Schema
	// Row holds the full snapshot for INSERT and UPDATE, and only the key for
	// DELETE. For an INSERT with no assigned key Row[0] is Null.
	Row Snapshot
}

// Columns returns the column names matching Row.
func (a Action) Columns() []string {
	fields := a.Schema.Fields()
	cols := make([]string, 0, len(a.Row))
	for i := range a.Row {
		if i < len(fields) {
			cols = append(cols, fields[i].Column)
		}
	}
	return cols
}

// Values returns Row as a column-keyed object.
func (a Action) Values() value.Object {
	return a.Row.Object(a.Schema)
}

// String renders the action as "INSERT User#<new>".
func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Key)
}

// GeneratedKey reports a store-assigned primary key for an inserted entity.
type GeneratedKey struct {
	Entity any
	ID     value.Value
}

// Persister executes a flush plan against a store.
//
// Execute receives the actions in plan order and must apply them in that
// order. It returns one GeneratedKey for every INSERT whose key the store
// assigned. Inserts with a client-assigned key need no GeneratedKey.
type Persister interface {
	Execute(ctx context.Context, actions []Action) ([]GeneratedKey, error)
}

// PersisterFunc adapts a function to the Persister interface.
type PersisterFunc func(ctx context.Context, actions []Action) ([]GeneratedKey, error)

// Execute calls f(ctx, actions).
func (f PersisterFunc) Execute(ctx context.Context, actions []Action) ([]GeneratedKey, error) {
	return f(ctx, actions)
}
