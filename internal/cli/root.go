package cli

import (
	"context"
	"fmt"

	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/gorkbot/gork/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gork",
		Short: "gork, a WhatsApp command bot",
		Long:  "gork answers WhatsApp messages delivered by an Evolution API webhook: commands, media tricks and reminders.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.gork/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMessageCmd())
	cmd.AddCommand(newModelCmd())
	cmd.AddCommand(newRemindersCmd())
	cmd.AddCommand(newWhitelistCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// openStore opens the configured database, creating the data directory
// for the default sqlite file when needed.
func openStore(ctx context.Context, cfg config.Config) (*store.DB, error) {
	if cfg.Store.Driver == "" || cfg.Store.Driver == "sqlite" {
		if err := paths.EnsureDirs(); err != nil {
			return nil, fmt.Errorf("creating data directories: %w", err)
		}
	}
	db, err := store.OpenConfig(ctx, cfg.Store, paths.DatabasePath(), log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// newModelClient builds the model gateway client, wrapped with model
// failover when fallbacks are configured.
func newModelClient(cfg config.ModelConfig) llm.Client {
	base := llm.NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.TextModel, cfg.Timeout())
	if len(cfg.Fallbacks) == 0 {
		return base
	}
	return llm.NewFailoverClient(base, cfg.Fallbacks, log)
}
