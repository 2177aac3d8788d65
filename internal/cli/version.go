package cli

import (
	"fmt"

	"github.com/medops/opsdesk/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "opsdesk %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildDate)
			return err
		},
	}
}
