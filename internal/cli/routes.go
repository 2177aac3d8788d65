package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medops/opsdesk/internal/app"
	"github.com/medops/opsdesk/internal/config"
	"github.com/spf13/cobra"
)

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes served by the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			// route listing must not start background work or seed data
			cfg.Feed.Enabled = false
			cfg.Feed.SeedDemoData = false
			cfg.Log.Level = "error"

			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("create app: %w", err)
			}

			routes, ok := a.Router().(chi.Routes)
			if !ok {
				return errors.New("router does not expose its routes")
			}

			out := cmd.OutOrStdout()
			return chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
				_, err := fmt.Fprintf(out, "%-6s %s\n", method, route)
				return err
			})
		},
	}
}
