package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

func TestAcknowledgeGeneratedKey(t *testing.T) {
	pc := newTestContext(t)
	u := attachTransient(t, pc, "new")
	provisional, _ := pc.KeyOf(u)
	require.NoError(t, pc.ScheduleInsert(u))

	require.NoError(t, pc.AcknowledgeGeneratedKey(u, userSchema, value.Int(42)))

	got, ok := pc.Lookup("User", value.Int(42))
	require.True(t, ok)
	assert.Same(t, u, got)
	assert.Equal(t, int64(42), u.ID, "key written through the setter")

	_, ok = pc.identity.get(provisional)
	assert.False(t, ok, "provisional entry removed")
	state, _ := pc.State(u)
	assert.Equal(t, StateManaged, state)
	assert.Equal(t, 1, pc.Size())
	assertBookkeeping(t, pc)

	snap, ok := pc.snapshots.get(NewKey("User", value.Int(42)))
	require.True(t, ok)
	assert.Equal(t, Snapshot{value.Int(42), value.String("new")}, snap)
}

func TestAcknowledgeCoercesKey(t *testing.T) {
	pc := newTestContext(t)
	u := attachTransient(t, pc, "new")

	require.NoError(t, pc.AcknowledgeGeneratedKey(u, nil, value.String("17")))
	assert.Equal(t, int64(17), u.ID)
	assert.True(t, pc.Contains("User", value.Int(17)))
}

func TestAcknowledgePreservesAttachOrder(t *testing.T) {
	pc := newTestContext(t)
	first := attachTransient(t, pc, "first")
	second := attachManaged(t, pc, 5, "second")
	require.NoError(t, pc.AcknowledgeGeneratedKey(first, nil, value.Int(6)))

	first.Name = "x"
	second.Name = "y"
	plan, err := pc.ComputeFlushPlan()
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Same(t, first, plan[0].Entity)
	assert.Same(t, second, plan[1].Entity)
}

func TestAcknowledgeErrors(t *testing.T) {
	pc := newTestContext(t)
	occupant := attachManaged(t, pc, 42, "occupant")
	u := attachTransient(t, pc, "new")

	err := pc.AcknowledgeGeneratedKey(&user{}, userSchema, value.Int(1))
	assert.True(t, IsNotManaged(err))

	err = pc.AcknowledgeGeneratedKey(u, userSchema, value.Int(42))
	assert.True(t, IsIdentityConflict(err))
	assert.Zero(t, u.ID, "entity untouched on conflict")
	got, _ := pc.Lookup("User", value.Int(42))
	assert.Same(t, occupant, got)
	state, _ := pc.State(u)
	assert.Equal(t, StateTransient, state)

	assert.True(t, IsInvalidKey(pc.AcknowledgeGeneratedKey(u, nil, value.Null{})))
	assert.True(t, IsInvalidKey(pc.AcknowledgeGeneratedKey(u, nil, value.String("abc"))))
	assert.Equal(t, ErrCodeInvalidEntity, CodeOf(pc.AcknowledgeGeneratedKey(u, eventSchema, value.Int(1))))

	require.NoError(t, pc.MarkRemoved(occupant))
	assert.True(t, IsInvalidState(pc.AcknowledgeGeneratedKey(occupant, nil, value.Int(43))))
}

func TestAcknowledgeSameKeyForManaged(t *testing.T) {
	pc := newTestContext(t)
	u := attachManaged(t, pc, 8, "eight")
	require.NoError(t, pc.AcknowledgeGeneratedKey(u, nil, value.Int(8)))
	assert.Equal(t, 1, pc.Size())
	assertBookkeeping(t, pc)
}
