package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/harness"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/metrics"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Driver  string
	DSN     string
	Journal bool
	Metrics bool
}

// RunOutput is a plan plus the journal rows the flushes wrote.
type RunOutput struct {
	PlanOutput
	Driver  string          `json:"driver"`
	Journal []JournalOutput `json:"journal"`
}

// JournalOutput is one flush journal row.
type JournalOutput struct {
	Seq    int64           `json:"seq"`
	Kind   string          `json:"kind"`
	Table  string          `json:"table"`
	Key    string          `json:"key"`
	Row    json.RawMessage `json:"row"`
	Digest string          `json:"digest"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario against the configured SQL store",
		Long: `Execute a scenario against a SQL store. Tables for the scenario's
entities are created if missing. Each flush runs in one transaction; with the
journal enabled every executed action is recorded and printed afterwards.

The store comes from minihib.yaml (see --config-dir) and MINIHIB_* variables;
--driver and --dsn override both.

Examples:
  minihib run ./scenarios/rekey.yaml
  minihib run ./scenarios/rekey.yaml --driver sqlite --dsn ./minihib.db
  MINIHIB_STORE_DSN=postgres://localhost/minihib minihib run --driver pgx s.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioOnStore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|sqlite|pgx)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().BoolVar(&opts.Journal, "journal", true, "record executed actions in the flush journal")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print flush metrics to stderr after the run")

	return cmd
}

func runScenarioOnStore(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Driver != "" {
		cfg.Store.Driver = opts.Driver
	}
	if opts.DSN != "" {
		cfg.Store.DSN = opts.DSN
	}
	if cmd.Flags().Changed("journal") {
		cfg.Store.Journal = opts.Journal
	}
	if cmd.Flags().Changed("metrics") {
		cfg.Metrics.Enabled = opts.Metrics
	}
	if err := cfg.Validate(); err != nil {
		return commandError(ErrCodeConfig, "invalid configuration", err)
	}
	if cfg.File != "" {
		formatter.VerboseLog("Using config %s", cfg.File)
	}

	logger := opts.logger(cmd.ErrOrStderr(), cfg.Level())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(ErrCodeScenario, "failed to load scenario", err)
	}
	schemas, err := scenario.Schemas()
	if err != nil {
		return commandError(ErrCodeScenario, "failed to load scenario", err)
	}

	logger.Info("opening store", "driver", cfg.Store.Driver, "journal", cfg.Store.Journal)
	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN,
		store.WithJournal(cfg.Store.Journal),
		store.WithLogger(logger),
	)
	if err != nil {
		return commandError(ErrCodeStore, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := st.CreateTable(ctx, schemas[name]); err != nil {
			return commandError(ErrCodeStore, "failed to create tables", err)
		}
	}

	runOpts := []harness.Option{harness.WithPersister(st), harness.WithLogger(logger)}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		collector, err := metrics.NewFlushCollector(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up metrics", err)
		}
		runOpts = append(runOpts, harness.WithObserver(collector))
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return commandError(ErrCodeScenario, "failed to run scenario", err)
	}

	plan, err := newPlanOutput(scenario.Name, result)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render plan", err)
	}
	out := RunOutput{PlanOutput: plan, Driver: cfg.Store.Driver, Journal: []JournalOutput{}}
	if cfg.Store.Journal {
		if out.Journal, err = readJournal(ctx, st, result.SessionID); err != nil {
			return commandError(ErrCodeStore, "failed to read journal", err)
		}
	}

	if err := formatter.SuccessFor(result.SessionID, out); err != nil {
		return err
	}
	if reg != nil {
		if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}
	return scenarioOutcome(result)
}

func readJournal(ctx context.Context, st *store.Store, sessionID string) ([]JournalOutput, error) {
	entries, err := st.ReadJournal(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]JournalOutput, 0, len(entries))
	for _, e := range entries {
		if err := e.Verify(); err != nil {
			return nil, err
		}
		out = append(out, JournalOutput{
			Seq:    e.Seq,
			Kind:   e.Kind,
			Table:  e.Table,
			Key:    e.Key,
			Row:    json.RawMessage(e.Row),
			Digest: e.Digest,
		})
	}
	return out, nil
}

// String renders the run for text output.
func (r RunOutput) String() string {
	var b strings.Builder
	b.WriteString(r.PlanOutput.String())
	fmt.Fprintf(&b, "\njournal (%s, %d entries)", r.Driver, len(r.Journal))
	for _, e := range r.Journal {
		fmt.Fprintf(&b, "\n  #%d %-6s %s %s %s", e.Seq, e.Kind, e.Key, e.Table, e.Row)
	}
	return b.String()
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
