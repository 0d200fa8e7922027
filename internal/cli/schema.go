package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/schema"
	"github.com/lamtanloc512/mini-hibernate-sub001/internal/store"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	DDL    bool
	Driver string
}

// SchemaOutput lists validated entity descriptors.
type SchemaOutput struct {
	Entities []EntityOutput `json:"entities"`
}

// EntityOutput describes one entity type.
type EntityOutput struct {
	Type    string         `json:"type"`
	Table   string         `json:"table"`
	Key     string         `json:"key"`
	Columns []ColumnOutput `json:"columns"`
	DDL     string         `json:"ddl,omitempty"`
}

// ColumnOutput describes one column.
type ColumnOutput struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	ReadOnly bool   `json:"readonly,omitempty"`
}

// DescriptorErrorDetails locates a descriptor error.
type DescriptorErrorDetails struct {
	Field  string `json:"field,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <dir>",
		Short: "Validate CUE entity descriptors",
		Long: `Load and validate the CUE entity descriptors in a directory and list
them. With --ddl the CREATE TABLE statement for each entity is printed for
the chosen driver.

Examples:
  minihib schema ./entities
  minihib schema ./entities --ddl --driver pgx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DDL, "ddl", false, "print CREATE TABLE statements")
	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite3, "SQL dialect for --ddl (sqlite3|sqlite|pgx)")

	return cmd
}

func runSchema(opts *SchemaOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	descs, err := schema.LoadDescriptors(dir)
	if err != nil {
		return descriptorError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d entity descriptor(s) from %s", len(descs), dir)

	out := SchemaOutput{Entities: make([]EntityOutput, 0, len(descs))}
	for _, d := range descs {
		sch, err := schema.ForRecord(d)
		if err != nil {
			return descriptorError(formatter, err)
		}
		e := EntityOutput{Type: d.Type, Table: d.Table, Key: d.Key}
		for _, c := range d.Columns {
			e.Columns = append(e.Columns, ColumnOutput{Name: c.Name, Kind: c.Kind.String(), ReadOnly: c.ReadOnly})
		}
		if opts.DDL {
			ddl, err := store.TableDDL(opts.Driver, sch)
			if err != nil {
				return commandError(ErrCodeGeneric, "invalid --driver", err)
			}
			e.DDL = ddl
		}
		out.Entities = append(out.Entities, e)
	}
	return formatter.Success(out)
}

func descriptorError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return commandError(ErrCodeNotFound, "schema directory not found", err)
	}

	var details *DescriptorErrorDetails
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		details = &DescriptorErrorDetails{Field: loadErr.Field}
		if loadErr.Pos.IsValid() {
			details.File = loadErr.Pos.Filename()
			details.Line = loadErr.Pos.Line()
			details.Column = loadErr.Pos.Column()
		}
	}
	if outErr := formatter.Error(ErrCodeDescriptor, err.Error(), details); outErr != nil {
		return outErr
	}
	return &ExitError{
		Code:     ExitFailure,
		Reason:   ErrCodeDescriptor,
		Message:  "invalid entity descriptors",
		Err:      err,
		Reported: true,
	}
}

// String renders the descriptors for text output.
func (s SchemaOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entities", len(s.Entities))
	for _, e := range s.Entities {
		fmt.Fprintf(&b, "\n%s (table %s, key %s)", e.Type, e.Table, e.Key)
		for _, c := range e.Columns {
			fmt.Fprintf(&b, "\n  %-12s %s", c.Name, c.Kind)
			if c.ReadOnly {
				b.WriteString(" readonly")
			}
		}
		if e.DDL != "" {
			fmt.Fprintf(&b, "\n%s;", e.DDL)
		}
	}
	return b.String()
}
