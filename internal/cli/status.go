package cli

import (
	"fmt"
	"os"

	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gork paths and a configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "gork %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(w, "Config:    %s\n", paths.Config)
			fmt.Fprintf(w, "Data:      %s\n", paths.Data)
			fmt.Fprintf(w, "Logs:      %s\n", paths.Logs)
			fmt.Fprintln(w)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(w, "Config:    not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(w, "Config:    error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(w, "Gateway:   port=%d bind=%s webhook=%s tls=%v events=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.WebhookPath,
				cfg.Gateway.TLS.Enabled, cfg.Gateway.Events.Enabled)
			fmt.Fprintf(w, "Evolution: %s instance=%s rate=%.1f/s\n",
				cfg.Evolution.BaseURL, orNone(cfg.Evolution.Instance), cfg.Evolution.RequestsPerSecond)
			fmt.Fprintf(w, "Pipeline:  bot=%s workers=%d queue=%d stale=%s\n",
				cfg.Pipeline.BotName, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, cfg.Pipeline.StaleAfter())

			storeAt := cfg.Store.Path
			if storeAt == "" {
				storeAt = paths.DatabasePath()
			}
			if cfg.Store.Driver == "postgres" {
				storeAt = "(dsn)"
			}
			fmt.Fprintf(w, "Store:     driver=%s %s\n", cfg.Store.Driver, storeAt)
			fmt.Fprintf(w, "Model:     text=%s\n", orNone(cfg.Model.TextModel))
			fmt.Fprintf(w, "Access:    %s\n", cfg.Access.Mode)

			issues := config.ValidateForServe(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(w, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
