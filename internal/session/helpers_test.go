package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

type user struct {
	ID   int64
	Name string
}

var userSchema = schema.Define[user]("User", "users").
	Key("id", value.KindInt,
		func(u *user) value.Value {
			if u.ID == 0 {
				return value.Null{}
			}
			return value.Int(u.ID)
		},
		func(u *user, v value.Value) error {
			if value.IsNull(v) {
				u.ID = 0
				return nil
			}
			u.ID = int64(v.(value.Int))
			return nil
		}).
	Column("name", value.KindString,
		func(u *user) value.Value { return value.String(u.Name) },
		func(u *user, v value.Value) error { u.Name = string(v.(value.String)); return nil }).
	MustBuild()

type event struct {
	At    time.Time
	Title string
}

var eventSchema = schema.Define[event]("Event", "events").
	Key("at", value.KindTime,
		func(e *event) value.Value { return value.NewTime(e.At) },
		func(e *event, v value.Value) error { e.At = time.Time(v.(value.Time)); return nil }).
	Column("title", value.KindString,
		func(e *event) value.Value { return value.String(e.Title) },
		nil).
	MustBuild()

func newTestContext(t *testing.T, opts ...Option) *PersistenceContext {
	t.Helper()
	opts = append([]Option{
		WithSessionID("session-test"),
		WithTokenGenerator(NewSequenceGenerator("tmp")),
	}, opts...)
	return New(opts...)
}

func attachManaged(t *testing.T, pc *PersistenceContext, id int64, name string) *user {
	t.Helper()
	u := &user{ID: id, Name: name}
	require.NoError(t, pc.Attach(u, userSchema, StateManaged))
	return u
}

func attachTransient(t *testing.T, pc *PersistenceContext, name string) *user {
	t.Helper()
	u := &user{Name: name}
	require.NoError(t, pc.Attach(u, userSchema, StateTransient))
	return u
}

// fakePersister records every call and assigns sequential ids to inserts
// without a key.
type fakePersister struct {
	calls     [][]Action
	sessionID string
	next      int64
	err       error
	noKeys    bool
}

func (f *fakePersister) Execute(ctx context.Context, actions []Action) ([]GeneratedKey, error) {
	f.calls = append(f.calls, actions)
	f.sessionID, _ = IDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	if f.noKeys {
		return nil, nil
	}
	var keys []GeneratedKey
	for _, a := range actions {
		if a.Kind == ActionInsert && value.IsNull(a.Row[0]) {
			f.next++
			keys = append(keys, GeneratedKey{Entity: a.Entity, ID: value.Int(f.next)})
		}
	}
	return keys, nil
}

func kinds(plan []Action) []ActionKind {
	out := make([]ActionKind, 0, len(plan))
	for _, a := range plan {
		out = append(out, a.Kind)
	}
	return out
}

// assertBookkeeping checks that the identity, state and snapshot maps agree
// for every MANAGED key.
func assertBookkeeping(t *testing.T, pc *PersistenceContext) {
	t.Helper()
	require.Equal(t, pc.identity.len(), pc.states.len(), "every identity has a state")
	require.Equal(t, len(pc.identity.entries), len(pc.identity.refs), "reverse index matches")
	for k, e := range pc.identity.entries {
		ref, ok := pc.identity.refs[e.entity]
		require.True(t, ok)
		require.Equal(t, k, ref)
		if st, _ := pc.states.get(k); st == StateManaged {
			_, ok := pc.snapshots.get(k)
			require.True(t, ok, "managed %s has a snapshot", k)
		}
	}
}
