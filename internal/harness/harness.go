package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/session"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/testutil"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	persister session.Persister
	logger    *slog.Logger
	observers []session.FlushObserver
}

// WithPersister runs flushes against p instead of an in-memory recording
// persister. The caller is responsible for p's tables.
func WithPersister(p session.Persister) Option {
	return func(c *runConfig) { c.persister = p }
}

// WithLogger sets the logger for the harness and the session.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a flush observer on the session.
func WithObserver(o session.FlushObserver) Option {
	return func(c *runConfig) { c.observers = append(c.observers, o) }
}

// Harness drives one session through a scenario.
type Harness struct {
	pc      *session.PersistenceContext
	schemas map[string]*schema.Schema
	refs    map[string]*schema.Record
	tap     *tap
	logger  *slog.Logger
}

// Run executes scenario in a fresh session and evaluates its assertions.
//
// A step that fails unexpectedly, or succeeds when it should fail, stops the
// run and fails the result; assertions are then skipped. Run itself returns
// an error only for scenarios that cannot be executed, such as invalid
// entity declarations or values that do not fit their column.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.persister == nil {
		cfg.persister = testutil.NewRecordingPersister()
	}

	schemas, err := scenario.Schemas()
	if err != nil {
		return nil, err
	}

	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = "scenario-" + scenario.Name
	}
	sessOpts := []session.Option{
		session.WithSessionID(sessionID),
		session.WithTokenGenerator(session.NewSequenceGenerator("tmp")),
		session.WithLogger(cfg.logger),
	}
	for _, o := range cfg.observers {
		sessOpts = append(sessOpts, session.WithObserver(o))
	}

	result := NewResult()
	result.SessionID = sessionID
	h := &Harness{
		pc:      session.New(sessOpts...),
		schemas: schemas,
		refs:    make(map[string]*schema.Record),
		tap:     &tap{inner: cfg.persister},
		logger:  cfg.logger.With("scenario", scenario.Name),
	}
	defer h.pc.Close()

	ok, err := h.executeSteps(ctx, scenario.Steps, result)
	result.Flushes = h.tap.flushes
	result.Size = h.pc.Size()
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	for _, msg := range h.evaluate(scenario.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// types returns the declared entity type names, sorted.
func (h *Harness) types() []string {
	out := make([]string, 0, len(h.schemas))
	for name := range h.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) (bool, error) {
	for i, step := range steps {
		err := h.execute(ctx, i, step)

		var se *scenarioError
		if errors.As(err, &se) {
			return false, fmt.Errorf("steps[%d] %s: %w", i, step.Op, se.err)
		}
		if msg := checkOutcome(step, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", i, step.Op, step.Ref, msg))
			return false, nil
		}

		h.logger.Debug("step completed", "step", i, "op", step.Op, "ref", step.Ref, "error_code", session.CodeOf(err))
	}
	return true, nil
}

func checkOutcome(step Step, err error) string {
	switch {
	case step.ExpectError == "" && err != nil:
		return fmt.Sprintf("unexpected error: %v", err)
	case step.ExpectError != "" && err == nil:
		return fmt.Sprintf("expected %s, step succeeded", step.ExpectError)
	case step.ExpectError != "" && string(session.CodeOf(err)) != step.ExpectError:
		return fmt.Sprintf("expected %s, got: %v", step.ExpectError, err)
	}
	return ""
}

func (h *Harness) execute(ctx context.Context, i int, step Step) error {
	if step.Op == OpAttach {
		return h.attach(step)
	}

	var rec *schema.Record
	if step.Ref != "" {
		rec = h.refs[step.Ref]
	}

	switch step.Op {
	case OpInsert:
		return h.pc.ScheduleInsert(rec)
	case OpDelete:
		return h.pc.ScheduleDelete(rec)
	case OpRemove:
		return h.pc.MarkRemoved(rec)
	case OpDetach:
		return h.pc.Detach(rec)
	case OpSet:
		return h.assign(rec, h.schemas[rec.Type], step.Values)
	case OpFlush:
		h.tap.step = i
		h.tap.fail = step.Fail
		return h.pc.Flush(ctx, h.tap)
	case OpClear:
		h.pc.Clear()
		return nil
	}
	return fail("unknown op %q", step.Op)
}

func (h *Harness) attach(step Step) error {
	sch, ok := h.schemas[step.Entity]
	if !ok {
		return fail("unknown entity %q (declared: %v)", step.Entity, h.types())
	}

	rec, bound := h.refs[step.Ref]
	if bound && rec.Type != step.Entity {
		return fail("ref %q is a %s, not a %s", step.Ref, rec.Type, step.Entity)
	}
	if !bound {
		rec = schema.NewRecord(step.Entity)
		h.refs[step.Ref] = rec
	}
	if err := h.assign(rec, sch, step.Values); err != nil {
		return err
	}

	state := session.StateManaged
	if step.State != "" {
		state = initialStates[step.State]
	}
	return h.pc.Attach(rec, sch, state)
}

// assign writes values straight into rec, bypassing column setters, the way
// application code mutates a loaded entity.
func (h *Harness) assign(rec *schema.Record, sch *schema.Schema, values map[string]any) error {
	for _, column := range sortedKeys(values) {
		field, ok := sch.Field(column)
		if !ok {
			return fail("%s has no column %q", sch.Type(), column)
		}
		v, err := toValue(field.Kind, values[column])
		if err != nil {
			return fail("%s.%s: %v", sch.Type(), column, err)
		}
		rec.Set(column, v)
	}
	return nil
}

func toValue(kind value.Kind, raw any) (value.Value, error) {
	v, err := value.Of(raw)
	if err != nil {
		return nil, err
	}
	return value.Coerce(kind, v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scenarioError marks a scenario that cannot be executed, as opposed to a
// session operation that failed.
type scenarioError struct{ err error }

func (e *scenarioError) Error() string { return e.err.Error() }
func (e *scenarioError) Unwrap() error { return e.err }

func fail(format string, args ...any) error {
	return &scenarioError{err: fmt.Errorf(format, args...)}
}

// tap records every plan on its way to the wrapped persister.
type tap struct {
	inner   session.Persister
	step    int
	fail    string
	flushes []Flush
}

func (t *tap) Execute(ctx context.Context, actions []session.Action) ([]session.GeneratedKey, error) {
	f := Flush{Step: t.step, Entries: session.Describe(actions), Generated: []string{}}

	if t.fail != "" {
		err := errors.New(t.fail)
		t.fail = ""
		f.Err = err.Error()
		t.flushes = append(t.flushes, f)
		return nil, err
	}

	keys, err := t.inner.Execute(ctx, actions)
	if err != nil {
		f.Err = err.Error()
		t.flushes = append(t.flushes, f)
		return nil, err
	}
	for _, g := range keys {
		f.Generated = append(f.Generated, session.NewKey(typeOf(actions, g.Entity), g.ID).String())
	}
	t.flushes = append(t.flushes, f)
	return keys, nil
}

func typeOf(actions []session.Action, entity any) string {
	for _, a := range actions {
		if a.Entity == entity {
			return a.Schema.Type()
		}
	}
	return ""
}
