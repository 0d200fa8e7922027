package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/store"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/testutil"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, "scenario-"+scenario.Name, result.SessionID)
		})
	}
}

func parse(t *testing.T, body string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte("name: t\ndescription: d\n"+userEntities+body), "")
	require.NoError(t, err)
	return s
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s := parse(t, `
steps:
  - {op: attach, ref: a, entity: User, values: {id: 1, name: a}}
  - {op: set, ref: a, values: {name: b}}
  - {op: flush}
assertions:
  - {type: plan, flush: 0, actions: ["DELETE User#1"]}
  - {type: plan, flush: 3, actions: []}
  - {type: state, ref: a, state: REMOVED}
  - {type: lookup, entity: User, id: 1, absent: true}
  - {type: lookup, entity: User, id: 2, ref: a}
  - {type: size, count: 5}
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "Expected: flush #0 = [DELETE User#1]")
	assert.Contains(t, result.Errors[0], "[0] step 2: UPDATE User#1")
	assert.Contains(t, result.Errors[1], "1 flushes reached the persister")
	assert.Contains(t, result.Errors[2], "Actual: MANAGED")
	assert.Contains(t, result.Errors[3], "tracked as a")
	assert.Contains(t, result.Errors[4], "not found")
	assert.Contains(t, result.Errors[5], "Actual: 1")
}

func TestRun_UnexpectedErrorStopsTheRun(t *testing.T) {
	s := parse(t, `
steps:
  - {op: attach, ref: a, entity: User, values: {id: 1}}
  - {op: insert, ref: a}
  - {op: flush}
assertions:
  - {type: size, count: 99}
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "assertions are skipped")
	assert.Contains(t, result.Errors[0], "steps[1] insert a: unexpected error")
	assert.Contains(t, result.Errors[0], "INVALID_STATE")
	assert.Empty(t, result.Flushes)
}

func TestRun_ExpectedErrorMustHappen(t *testing.T) {
	s := parse(t, `
steps:
  - {op: attach, ref: a, entity: User, values: {id: 1}, expect_error: IDENTITY_CONFLICT}
`)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected IDENTITY_CONFLICT, step succeeded")

	s = parse(t, `
steps:
  - {op: attach, ref: a, entity: User, values: {id: 1}}
  - {op: detach, ref: a}
  - {op: remove, ref: a, expect_error: INVALID_STATE}
`)
	result, err = Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected INVALID_STATE, got: NOT_MANAGED")
}

func TestRun_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "unknown entity",
			body:   "steps: [{op: attach, ref: a, entity: Ghost}]\n",
			errMsg: `unknown entity "Ghost" (declared: [User])`,
		},
		{
			name:   "unknown column",
			body:   "steps: [{op: attach, ref: a, entity: User, values: {age: 3}}]\n",
			errMsg: `User has no column "age"`,
		},
		{
			name:   "value does not fit column",
			body:   "steps: [{op: attach, ref: a, entity: User, values: {id: abc}}]\n",
			errMsg: "User.id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), parse(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRun_BadEntities(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: t
description: d
entities: |
  entity: User: {table: "users", key: "id", columns: [{name: "name", kind: "string"}]}
steps: [{op: flush}]
`), "")
	require.NoError(t, err)

	_, err = Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entities")
}

func TestRun_CustomPersisterAndObserver(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/rekey.yaml")
	require.NoError(t, err)

	rec := testutil.NewRecordingPersisterFrom(100)
	var stats []session.FlushStats
	observer := session.FlushObserverFunc(func(st session.FlushStats) { stats = append(stats, st) })

	result, err := Run(context.Background(), scenario, WithPersister(rec), WithObserver(observer))
	require.NoError(t, err)

	// Keys 100 and 101 break the lookup assertion and the second plan.
	assert.False(t, result.Pass)
	require.Len(t, result.Flushes, 2)
	assert.Equal(t, []string{"User#100", "User#101"}, result.Flushes[0].Generated)
	assert.Equal(t, []string{"UPDATE User#100"}, result.Flushes[1].Actions())
	assert.Len(t, rec.Flushes(), 2)

	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats[0].Inserts)
	assert.Equal(t, 1, stats[1].Updates)
	assert.Equal(t, "scenario-rekey", stats[0].SessionID)
}

func TestRun_AgainstSQLStore(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/rekey.yaml")
	require.NoError(t, err)

	st, err := store.Open(store.DriverSQLite3, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	schemas, err := scenario.Schemas()
	require.NoError(t, err)
	for _, sch := range schemas {
		require.NoError(t, st.CreateTable(context.Background(), sch))
	}

	result, err := RunWithGolden(t, scenario, WithPersister(st))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	entries, err := st.ReadJournal(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "User#1", entries[0].Key)
	assert.Equal(t, "User#2", entries[1].Key)
	assert.Equal(t, "User#1", entries[2].Key)
	for _, e := range entries {
		assert.NoError(t, e.Verify())
	}
}
