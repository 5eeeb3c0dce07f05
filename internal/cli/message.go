package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/evolution"
	"github.com/spf13/cobra"
)

func newMessageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Send messages through the Evolution API",
	}

	cmd.AddCommand(newMessageSendCmd())
	return cmd
}

func newMessageSendCmd() *cobra.Command {
	var replyTo string

	cmd := &cobra.Command{
		Use:   "send <number|group-id> <text...>",
		Short: "Send a text message as the bot",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cfg.Evolution.Instance == "" {
				return fmt.Errorf("evolution.instance is not configured")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := evolution.NewClient(
				cfg.Evolution.BaseURL,
				cfg.Evolution.Instance,
				cfg.Evolution.APIKey,
				log,
				evolution.WithTimeout(cfg.Evolution.Timeout()),
			)
			text := strings.Join(args[1:], " ")
			if err := client.SendText(ctx, args[0], text, replyTo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&replyTo, "reply-to", "", "message id to quote")

	return cmd
}
