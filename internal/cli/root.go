// Package cli implements the opsdesk command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// ConfigEnv names the environment variable holding the default config path.
const ConfigEnv = "OPSDESK_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command of the opsdesk CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "opsdesk",
		Short: "opsdesk - alert escalation for medical operations",
		Long: `opsdesk ingests operational alerts, escalates high and critical ones
into incidents with an SLA deadline and a follow-up task, and pages the
responsible team.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv(ConfigEnv), "path to YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRoutesCommand(opts))
	cmd.AddCommand(NewCheckConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
