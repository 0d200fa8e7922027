package harness

import (
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
)

// Flush is one flush that reached the persister.
type Flush struct {
	// Step is the index of the flush step.
	Step    int
	Entries []session.PlanEntry
	// Generated lists the keys the persister assigned, as "Type#id".
	Generated []string
	// Err is the persister error, if the flush failed.
	Err string
}

// Actions returns the "KIND key" strings of the flush, in plan order.
func (f Flush) Actions() []string {
	out := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		out = append(out, string(e.Kind)+" "+e.Key)
	}
	return out
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion succeeded.
	Pass      bool
	SessionID string
	Flushes   []Flush
	Errors    []string
	// Size is the number of tracked entities at the end of the run.
	Size int
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Flushes: []Flush{}, Errors: []string{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
