package cli

import (
	"fmt"

	"github.com/medops/opsdesk/internal/config"
	"github.com/spf13/cobra"
)

// NewCheckConfigCommand creates the check-config command.
func NewCheckConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "listen:      %s:%s (metrics %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.MetricsPort)
			_, _ = fmt.Fprintf(out, "id strategy: %s\n", cfg.Escalation.IDStrategy)
			_, _ = fmt.Fprintf(out, "feed:        enabled=%t interval=%s\n", cfg.Feed.Enabled, cfg.Feed.Interval)
			_, _ = fmt.Fprintf(out, "paging:      enabled=%t teams=%d\n", cfg.Paging.Enabled, len(cfg.Paging.Teams))
			_, err = fmt.Fprintln(out, "config OK")
			return err
		},
	}
}
