package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the minihib CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "minihib",
		Short: "minihib - a unit-of-work persistence context",
		Long: `minihib tracks entities in a session, detects changes by snapshot
comparison and flushes inserts, updates and deletes to a SQL store in a
deterministic order.

Scenario files script a session; plan shows the flushes they produce and
run executes them against the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory containing minihib.yaml (default: working directory)")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig reads configuration for commands that need it.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// logger writes text records to w. --verbose forces Debug.
func (o *RootOptions) logger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the CLI with args and returns the process exit code.
// Errors the command has not already reported are written to stderr, or
// to stdout as a JSON error envelope with --format json.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	if format, _ := cmd.PersistentFlags().GetString("format"); format == "json" {
		reason := ErrCodeGeneric
		if exitErr != nil && exitErr.Reason != "" {
			reason = exitErr.Reason
		}
		f := &OutputFormatter{Format: format, Writer: stdout}
		if outErr := f.Error(reason, err.Error(), nil); outErr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	// Cobra's own argument and flag errors are command errors.
	if exitErr == nil {
		return ExitCommandError
	}
	return exitErr.Code
}
