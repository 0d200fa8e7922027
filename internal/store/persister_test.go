package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

func TestExecute_InsertAssignsGeneratedKeys(t *testing.T) {
	s := createTestStore(t)
	pc := newSession(t, "s-insert")
	ctx := t.Context()

	a := &note{Title: "first", Done: true}
	b := &note{Title: "second"}
	for _, n := range []*note{a, b} {
		require.NoError(t, pc.Attach(n, noteSchema, session.StateTransient))
		require.NoError(t, pc.ScheduleInsert(n))
	}

	require.NoError(t, pc.Flush(ctx, s))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.True(t, pc.Contains("Note", value.Int(2)))
	state, _ := pc.State(a)
	assert.Equal(t, session.StateManaged, state)
	assert.Equal(t, 2, countRows(t, s, "notes"))
}

func TestExecute_ClientAssignedKey(t *testing.T) {
	s := createTestStore(t)
	pc := newSession(t, "s-client")
	g := &tag{Name: "go", Color: "blue"}
	require.NoError(t, pc.Attach(g, tagSchema, session.StateTransient))
	require.NoError(t, pc.ScheduleInsert(g))

	require.NoError(t, pc.Flush(t.Context(), s))
	assert.True(t, pc.Contains("Tag", value.String("go")))

	var color string
	require.NoError(t, s.DB().QueryRow(`SELECT color FROM tags WHERE name = ?`, "go").Scan(&color))
	assert.Equal(t, "blue", color)
}

func TestExecute_GeneratedKeyNeedsIntegerKey(t *testing.T) {
	s := createTestStore(t)
	pc := newSession(t, "s-badkey")
	g := &tag{Color: "red"}
	require.NoError(t, pc.Attach(g, tagSchema, session.StateTransient))
	require.NoError(t, pc.ScheduleInsert(g))

	err := pc.Flush(t.Context(), s)
	require.Error(t, err)
	assert.True(t, session.IsPersisterFailure(err))
	assert.ErrorIs(t, err, ErrGeneratedKey)
}

func TestExecute_UpdateAndDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	pc := newSession(t, "s-1")
	stars := 4.5
	n := &note{Title: "draft", Stars: &stars, Created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Blob: []byte{1, 2}}
	require.NoError(t, pc.Attach(n, noteSchema, session.StateTransient))
	require.NoError(t, pc.ScheduleInsert(n))
	require.NoError(t, pc.Flush(ctx, s))

	n.Title = "final"
	n.Stars = nil
	require.NoError(t, pc.Flush(ctx, s))

	fresh := newSession(t, "s-2")
	loaded, err := LoadAs[note](ctx, s, fresh, noteSchema, value.Int(n.ID))
	require.NoError(t, err)
	assert.Equal(t, "final", loaded.Title)
	assert.Nil(t, loaded.Stars)
	assert.True(t, n.Created.Equal(loaded.Created))
	assert.Equal(t, []byte{1, 2}, loaded.Blob)

	require.NoError(t, fresh.MarkRemoved(loaded))
	require.NoError(t, fresh.Flush(ctx, s))
	assert.Equal(t, 0, countRows(t, s, "notes"))
	assert.False(t, fresh.Contains("Note", value.Int(n.ID)))
}

func TestExecute_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	ghost := &note{ID: 99, Title: "ghost"}
	fresh := &note{Title: "fresh"}
	actions := []session.Action{
		{Kind: session.ActionInsert, Key: session.NewKey("Note", nil), Entity: fresh, Schema: noteSchema,
			Row: mustSnapshot(t, fresh)},
		{Kind: session.ActionUpdate, Key: session.NewKey("Note", value.Int(99)), Entity: ghost, Schema: noteSchema,
			Row: mustSnapshot(t, ghost)},
	}

	_, err := s.Execute(session.ContextWithID(ctx, "s-fail"), actions)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.Contains(t, err.Error(), "action 1 UPDATE Note#99")

	assert.Equal(t, 0, countRows(t, s, "notes"), "insert rolled back")
	entries, err := s.ReadJournal(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries, "journal rolled back")
}

func TestExecute_FailedFlushKeepsSessionQueues(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	pc := newSession(t, "s-q")

	n := &note{ID: 5, Title: "never stored"}
	require.NoError(t, pc.Attach(n, noteSchema, session.StateManaged))
	require.NoError(t, pc.ScheduleDelete(n))

	err := pc.Flush(ctx, s)
	require.Error(t, err)
	assert.True(t, session.IsPersisterFailure(err))
	assert.ErrorIs(t, err, ErrRowNotFound)
	_, deletes := pc.Pending()
	assert.Equal(t, 1, deletes)
}

func TestExecute_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	n := &note{Title: "x"}
	_, err := s.Execute(ctx, []session.Action{
		{Kind: session.ActionInsert, Key: session.NewKey("Note", nil), Entity: n, Schema: noteSchema, Row: mustSnapshot(t, n)},
	})
	assert.Error(t, err)
}

func TestExecute_ModerncDriver(t *testing.T) {
	s := createTestStoreWith(t, DriverSQLite)
	ctx := t.Context()
	pc := newSession(t, "s-modernc")

	n := &note{Title: "pure go", Done: true}
	require.NoError(t, pc.Attach(n, noteSchema, session.StateTransient))
	require.NoError(t, pc.ScheduleInsert(n))
	require.NoError(t, pc.Flush(ctx, s))
	assert.Equal(t, int64(1), n.ID)

	other := newSession(t, "s-modernc-2")
	loaded, err := LoadAs[note](ctx, s, other, noteSchema, value.Int(1))
	require.NoError(t, err)
	assert.Equal(t, "pure go", loaded.Title)
	assert.True(t, loaded.Done)
}

func TestExecute_Postgres(t *testing.T) {
	dsn := postgresDSN(t)
	s, err := Open(DriverPostgres, dsn)
	require.NoError(t, err)
	defer s.Close()
	ctx := t.Context()

	_, err = s.DB().ExecContext(ctx, `DROP TABLE IF EXISTS "notes"`)
	require.NoError(t, err)
	require.NoError(t, s.CreateTable(ctx, noteSchema))

	pc := newSession(t, "s-pg")
	n := &note{Title: "pg", Created: time.Now().UTC().Truncate(time.Microsecond)}
	require.NoError(t, pc.Attach(n, noteSchema, session.StateTransient))
	require.NoError(t, pc.ScheduleInsert(n))
	require.NoError(t, pc.Flush(ctx, s))
	assert.NotZero(t, n.ID)

	other := newSession(t, "s-pg-2")
	loaded, err := LoadAs[note](ctx, s, other, noteSchema, value.Int(n.ID))
	require.NoError(t, err)
	assert.Equal(t, "pg", loaded.Title)
	assert.True(t, n.Created.Equal(loaded.Created))
}

func mustSnapshot(t *testing.T, n *note) session.Snapshot {
	t.Helper()
	snap, err := session.TakeSnapshot(n, noteSchema)
	require.NoError(t, err)
	return snap
}
