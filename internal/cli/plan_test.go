package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingScenario = `name: failing
description: "Size assertion that cannot hold"
entities: |
  entity: User: {
    table: "users"
    key:   "id"
    columns: [
      {name: "id", kind: "int"},
      {name: "name", kind: "string"},
    ]
  }
steps:
  - op: attach
    ref: bob
    entity: User
    values: {id: 2, name: bob}
  - op: flush
assertions:
  - type: size
    count: 5
`

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPlanCommandText(t *testing.T) {
	stdout, _, code := execute(t, "plan", filepath.Join(scenariosDir, "ordering.yaml"))
	require.Equal(t, ExitSuccess, code, stdout)

	assert.Contains(t, stdout, "scenario ordering (session scenario-ordering)")
	assert.Contains(t, stdout, "flush #0 (step 6)")
	assert.Contains(t, stdout, "INSERT User#<new> users")
	assert.Contains(t, stdout, "generated: User#1")
	assert.Contains(t, stdout, "PASS")

	insert := strings.Index(stdout, "INSERT")
	update := strings.Index(stdout, "UPDATE")
	del := strings.Index(stdout, "DELETE")
	assert.True(t, insert < update && update < del, "actions are printed in flush order:\n%s", stdout)
}

func TestPlanCommandJSON(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "plan", filepath.Join(scenariosDir, "ordering.yaml"))
	require.Equal(t, ExitSuccess, code, stdout)

	var out PlanOutput
	resp := decodeResponse(t, stdout, &out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "scenario-ordering", resp.SessionID)

	assert.Equal(t, "ordering", out.Scenario)
	assert.True(t, out.Pass)
	require.Len(t, out.Flushes, 1)
	flush := out.Flushes[0]
	assert.Equal(t, 6, flush.Step)
	assert.Equal(t, []string{"User#1"}, flush.Generated)
	require.Len(t, flush.Actions, 3)
	assert.Equal(t, "INSERT", flush.Actions[0].Kind)
	assert.JSONEq(t, `{"id":null,"name":"alice"}`, string(flush.Actions[0].Row))
	assert.Equal(t, "UPDATE", flush.Actions[1].Kind)
	assert.Equal(t, "User#2", flush.Actions[1].Key)
	assert.Equal(t, "DELETE", flush.Actions[2].Kind)
	assert.JSONEq(t, `{"id":3}`, string(flush.Actions[2].Row))
}

func TestPlanCommandFailedFlush(t *testing.T) {
	stdout, _, code := execute(t, "plan", filepath.Join(scenariosDir, "persister_failure.yaml"))
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "FAILED:")
}

func TestPlanCommandFailingScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "failing.yaml", failingScenario)

	stdout, stderr, code := execute(t, "plan", path)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "FAIL")
	assert.Contains(t, stdout, "size")
	assert.Empty(t, stderr, "the plan output already reports the failure")
}

func TestPlanCommandMissingFile(t *testing.T) {
	_, stderr, code := execute(t, "plan", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to load scenario")
}

func TestPlanCommandInvalidScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.yaml", "name: bad\nsteps:\n  - op: teleport\n")

	_, stderr, code := execute(t, "plan", path)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to load scenario")
}
