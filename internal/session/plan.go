package session

import (
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// PlanEntry is the portable form of an Action, without entity references.
type PlanEntry struct {
	Kind  ActionKind
	Key   string
	Table string
	Row   value.Object
}

// Describe converts a plan into portable entries.
func Describe(plan []Action) []PlanEntry {
	out := make([]PlanEntry, 0, len(plan))
	for _, a := range plan {
		out = append(out, PlanEntry{
			Kind:  a.Kind,
			Key:   a.Key.String(),
			Table: a.Schema.Table(),
			Row:   a.Values(),
		})
	}
	return out
}

// MarshalPlan renders a plan as canonical JSON:
//
//	[{"key":"User#<new>","kind":"INSERT","row":{...},"table":"users"}, ...]
//
// Equal plans produce identical bytes.
func MarshalPlan(plan []Action) ([]byte, error) {
	return MarshalEntries(Describe(plan))
}

// MarshalEntries is MarshalPlan for already described entries.
func MarshalEntries(entries []PlanEntry) ([]byte, error) {
	items := make([]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"kind":  string(e.Kind),
			"key":   e.Key,
			"table": e.Table,
			"row":   e.Row,
		})
	}
	return value.MarshalCanonical(items)
}

// PlanDigest returns the domain-separated SHA-256 of the canonical plan.
func PlanDigest(plan []Action) (string, error) {
	data, err := MarshalPlan(plan)
	if err != nil {
		return "", err
	}
	return value.Digest(value.DomainPlan, data), nil
}
