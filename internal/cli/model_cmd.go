package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect and try the configured models",
	}

	cmd.AddCommand(newModelListCmd())
	cmd.AddCommand(newModelAskCmd())
	return cmd
}

func newModelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which model serves each capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			m := cfg.Model
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Gateway:   %s\n", m.BaseURL)
			fmt.Fprintf(w, "Text:      %s\n", orNone(m.TextModel))
			fmt.Fprintf(w, "Vision:    %s\n", orNone(m.VisionModel))
			fmt.Fprintf(w, "Image:     %s\n", orNone(m.ImageModel))
			fmt.Fprintf(w, "Audio:     %s\n", orNone(m.AudioModel))
			if len(m.Fallbacks) > 0 {
				fmt.Fprintf(w, "Fallbacks: %s\n", strings.Join(m.Fallbacks, ", "))
			}
			return nil
		},
	}
}

func newModelAskCmd() *cobra.Command {
	var (
		model  string
		search bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Send a one-off prompt to the text model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Model.TextModel
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			resp, err := newModelClient(cfg.Model).Complete(ctx, llm.CompletionRequest{
				Model:     model,
				Messages:  []llm.Message{{Role: llm.RoleUser, Content: strings.Join(args, " ")}},
				WebSearch: search,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Content)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n[model=%s tokens=%d+%d]\n",
				resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model id (default: the configured text model)")
	cmd.Flags().BoolVar(&search, "search", false, "let the model search the web")

	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}
