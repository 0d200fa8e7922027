package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Flushes  []Flush
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Flushes) > 0 {
		fmt.Fprintf(&buf, "\nFlushes:\n")
		for i, f := range e.Flushes {
			fmt.Fprintf(&buf, "  [%d] step %d: %s", i, f.Step, strings.Join(f.Actions(), ", "))
			if f.Err != "" {
				fmt.Fprintf(&buf, " (failed: %s)", f.Err)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func (h *Harness) evaluate(assertions []Assertion, result *Result) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluateOne(a, result); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) evaluateOne(a Assertion, result *Result) error {
	switch a.Type {
	case AssertPlan:
		return assertPlan(result.Flushes, a)
	case AssertState:
		return h.assertState(a)
	case AssertLookup:
		return h.assertLookup(a)
	case AssertSize:
		return h.assertSize(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertPlan(flushes []Flush, a Assertion) error {
	if a.Flush >= len(flushes) {
		return &AssertionError{
			Type:     AssertPlan,
			Expected: fmt.Sprintf("flush #%d", a.Flush),
			Actual:   fmt.Sprintf("%d flushes reached the persister", len(flushes)),
			Flushes:  flushes,
		}
	}
	got := flushes[a.Flush].Actions()
	if !slices.Equal(got, a.Actions) {
		return &AssertionError{
			Type:     AssertPlan,
			Expected: fmt.Sprintf("flush #%d = %v", a.Flush, a.Actions),
			Actual:   fmt.Sprintf("%v", got),
			Flushes:  flushes,
		}
	}
	return nil
}

func (h *Harness) assertState(a Assertion) error {
	actual := StateUntracked
	if st, ok := h.pc.State(h.refs[a.Ref]); ok {
		actual = st.String()
	}
	if actual != a.State {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s is %s", a.Ref, a.State),
			Actual:   actual,
		}
	}
	return nil
}

func (h *Harness) assertLookup(a Assertion) error {
	sch, ok := h.schemas[a.Entity]
	if !ok {
		return fmt.Errorf("lookup: unknown entity %q", a.Entity)
	}
	id, err := toValue(sch.Key().Kind, a.ID)
	if err != nil {
		return fmt.Errorf("lookup: id: %w", err)
	}
	key := session.NewKey(a.Entity, id)
	got, found := h.pc.Lookup(a.Entity, id)

	if a.Absent {
		if found {
			return &AssertionError{
				Type:     AssertLookup,
				Expected: fmt.Sprintf("%s is absent", key),
				Actual:   fmt.Sprintf("%s is tracked as %s", key, h.refName(got)),
			}
		}
		return nil
	}

	want := h.refs[a.Ref]
	switch {
	case !found:
		return &AssertionError{
			Type:     AssertLookup,
			Expected: fmt.Sprintf("%s resolves to %s", key, a.Ref),
			Actual:   "not found",
		}
	case got != any(want):
		return &AssertionError{
			Type:     AssertLookup,
			Expected: fmt.Sprintf("%s resolves to %s", key, a.Ref),
			Actual:   fmt.Sprintf("resolves to %s", h.refName(got)),
		}
	}
	return nil
}

func (h *Harness) assertSize(a Assertion) error {
	if got := h.pc.Size(); got != *a.Count {
		return &AssertionError{
			Type:     AssertSize,
			Expected: fmt.Sprintf("%d tracked entities", *a.Count),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

func (h *Harness) refName(entity any) string {
	for name, rec := range h.refs {
		if any(rec) == entity {
			return name
		}
	}
	return fmt.Sprintf("an unnamed %T", entity)
}
