package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=v1.2.3".
var Version = "dev"

// VersionOutput is the version command payload.
type VersionOutput struct {
	Version string `json:"version"`
	Go      string `json:"go"`
}

func (v VersionOutput) String() string {
	return fmt.Sprintf("minihib %s (%s)", v.Version, v.Go)
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the minihib version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(VersionOutput{Version: Version, Go: runtime.Version()})
		},
	}
}
