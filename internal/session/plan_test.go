package session

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func orderingPlan(t *testing.T) []Action {
	t.Helper()
	pc := newTestContext(t)
	c := attachManaged(t, pc, 3, "carol")
	b := attachManaged(t, pc, 2, "bob")
	a := attachTransient(t, pc, "alice")
	require.NoError(t, pc.ScheduleInsert(a))
	b.Name = "bobby"
	require.NoError(t, pc.ScheduleDelete(c))

	plan, err := pc.ComputeFlushPlan()
	require.NoError(t, err)
	return plan
}

func TestMarshalPlanGolden(t *testing.T) {
	data, err := MarshalPlan(orderingPlan(t))
	require.NoError(t, err)
	newGoldie(t).Assert(t, "ordering_plan", data)
}

func TestPlanDigestStable(t *testing.T) {
	d1, err := PlanDigest(orderingPlan(t))
	require.NoError(t, err)
	d2, err := PlanDigest(orderingPlan(t))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	empty, err := PlanDigest(nil)
	require.NoError(t, err)
	assert.NotEqual(t, d1, empty)
}

func TestDescribe(t *testing.T) {
	entries := Describe(orderingPlan(t))
	require.Len(t, entries, 3)
	assert.Equal(t, PlanEntry{
		Kind:  ActionUpdate,
		Key:   "User#2",
		Table: "users",
		Row:   value.Object{"id": value.Int(2), "name": value.String("bobby")},
	}, entries[1])
	assert.Equal(t, value.Object{"id": value.Int(3)}, entries[2].Row)
}
