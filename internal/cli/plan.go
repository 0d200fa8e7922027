package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/harness"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/value"
)

// PlanOutput is the rendered result of a scenario run.
type PlanOutput struct {
	Scenario  string        `json:"scenario"`
	SessionID string        `json:"session_id"`
	Pass      bool          `json:"pass"`
	Flushes   []FlushOutput `json:"flushes"`
	Errors    []string      `json:"errors,omitempty"`
}

// FlushOutput is one flush that reached the persister.
type FlushOutput struct {
	Step      int            `json:"step"`
	Actions   []ActionOutput `json:"actions"`
	Generated []string       `json:"generated"`
	Error     string         `json:"error,omitempty"`
}

// ActionOutput is one planned write. Row is canonical JSON.
type ActionOutput struct {
	Kind  string          `json:"kind"`
	Key   string          `json:"key"`
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <scenario.yaml>",
		Short: "Show the flush plans a scenario produces",
		Long: `Run a scenario against an in-memory recording persister and print
every flush plan in execution order: inserts first, then updates in attach
order, then deletes. Keys assigned to inserts are 1, 2, 3, ...

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (missing file, invalid scenario, etc.)

Examples:
  minihib plan ./scenarios/ordering.yaml
  minihib plan ./scenarios/ordering.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runPlan(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(ErrCodeScenario, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	logger := opts.logger(cmd.ErrOrStderr(), slog.LevelWarn)
	result, err := harness.Run(commandContext(cmd), scenario, harness.WithLogger(logger))
	if err != nil {
		return commandError(ErrCodeScenario, "failed to run scenario", err)
	}

	out, err := newPlanOutput(scenario.Name, result)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render plan", err)
	}
	if err := formatter.SuccessFor(result.SessionID, out); err != nil {
		return err
	}
	return scenarioOutcome(result)
}

func newPlanOutput(name string, result *harness.Result) (PlanOutput, error) {
	out := PlanOutput{
		Scenario:  name,
		SessionID: result.SessionID,
		Pass:      result.Pass,
		Flushes:   make([]FlushOutput, 0, len(result.Flushes)),
		Errors:    result.Errors,
	}
	for _, f := range result.Flushes {
		fo := FlushOutput{
			Step:      f.Step,
			Actions:   make([]ActionOutput, 0, len(f.Entries)),
			Generated: f.Generated,
			Error:     f.Err,
		}
		if fo.Generated == nil {
			fo.Generated = []string{}
		}
		for _, e := range f.Entries {
			row, err := value.MarshalCanonical(e.Row)
			if err != nil {
				return PlanOutput{}, fmt.Errorf("flush at step %d: %s %s: %w", f.Step, e.Kind, e.Key, err)
			}
			fo.Actions = append(fo.Actions, ActionOutput{
				Kind:  string(e.Kind),
				Key:   e.Key,
				Table: e.Table,
				Row:   row,
			})
		}
		out.Flushes = append(out.Flushes, fo)
	}
	return out, nil
}

// String renders the plan for text output.
func (p PlanOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s (session %s)\n", p.Scenario, p.SessionID)
	if len(p.Flushes) == 0 {
		b.WriteString("no flush reached the persister\n")
	}
	for i, f := range p.Flushes {
		fmt.Fprintf(&b, "flush #%d (step %d)", i, f.Step)
		if f.Error != "" {
			fmt.Fprintf(&b, " FAILED: %s", f.Error)
		}
		b.WriteByte('\n')
		for _, a := range f.Actions {
			fmt.Fprintf(&b, "  %-6s %s %s %s\n", a.Kind, a.Key, a.Table, a.Row)
		}
		if len(f.Generated) > 0 {
			fmt.Fprintf(&b, "  generated: %s\n", strings.Join(f.Generated, ", "))
		}
	}
	if p.Pass {
		b.WriteString("PASS")
	} else {
		b.WriteString("FAIL")
		for _, e := range p.Errors {
			fmt.Fprintf(&b, "\n  %s", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
		}
	}
	return b.String()
}

func scenarioOutcome(result *harness.Result) error {
	if result.Pass {
		return nil
	}
	return &ExitError{
		Code:     ExitFailure,
		Reason:   ErrCodeAssertions,
		Message:  fmt.Sprintf("scenario failed with %d error(s)", len(result.Errors)),
		Reported: true,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
