package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// MarshalFlushes renders the flushes of a run as canonical JSON:
//
//	{"flushes":[{"generated":["User#1"],"plan":[...],"step":2}],"scenario":"ordering"}
//
// A failed flush carries an "error" member.
func MarshalFlushes(scenarioName string, flushes []Flush) ([]byte, error) {
	list := make([]any, 0, len(flushes))
	for _, f := range flushes {
		plan := make([]any, 0, len(f.Entries))
		for _, e := range f.Entries {
			plan = append(plan, map[string]any{
				"kind":  string(e.Kind),
				"key":   e.Key,
				"table": e.Table,
				"row":   e.Row,
			})
		}
		generated := f.Generated
		if generated == nil {
			generated = []string{}
		}
		item := map[string]any{
			"step":      f.Step,
			"plan":      plan,
			"generated": generated,
		}
		if f.Err != "" {
			item["error"] = f.Err
		}
		list = append(list, item)
	}
	return value.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"flushes":  list,
	})
}

// RunWithGolden runs scenario and compares its flushes against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalFlushes(scenarioName, result.Flushes)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
