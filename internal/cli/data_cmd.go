package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/dispatch"
	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/store"
	"github.com/spf13/cobra"
)

// withStore loads the config, opens the database and runs fn against it.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, db *store.DB) error) error {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func newRemindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect and cancel reminders",
	}
	cmd.AddCommand(newRemindersListCmd())
	cmd.AddCommand(newRemindersCancelCmd())
	return cmd
}

func newRemindersListCmd() *cobra.Command {
	var (
		limit   int
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				rs := store.NewReminderStore(db)
				var (
					list []domain.Reminder
					err  error
				)
				if pending {
					list, err = rs.PendingReminders(ctx)
				} else {
					list, err = rs.List(ctx, limit)
				}
				if err != nil {
					return err
				}
				printReminders(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of reminders to show")
	cmd.Flags().BoolVar(&pending, "pending", false, "only show reminders that have not fired")
	return cmd
}

func printReminders(w io.Writer, list []domain.Reminder) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No reminders.")
		return
	}
	for _, r := range list {
		fmt.Fprintf(w, "#%-5d %-9s %s  %-24s %s\n",
			r.ID, r.Status(), dispatch.FormatReminderTime(r.RemindAt), r.RemoteID, r.Message)
	}
}

func newRemindersCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending reminder",
		Long:  "Cancel a pending reminder. A running server skips it when it comes due.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reminder id %q", args[0])
			}
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				ok, err := store.NewReminderStore(db).Cancel(ctx, id, "")
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("reminder #%d is not pending", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reminder #%d cancelled\n", id)
				return nil
			})
		},
	}
}

func newWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage who the bot answers in whitelist mode",
	}
	cmd.AddCommand(newWhitelistAddCmd())
	cmd.AddCommand(newWhitelistRemoveCmd())
	cmd.AddCommand(newWhitelistListCmd())
	return cmd
}

func newWhitelistAddCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "add <user|group> <id>",
		Short: "Allow a user or group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				if err := store.NewWhitelist(db).Add(ctx, args[0], args[1], admin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Allowed %s %s\n", args[0], args[1])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "mark the entry as an administrator")
	return cmd
}

func newWhitelistRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user|group> <id>",
		Short: "Revoke a user or group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				ok, err := store.NewWhitelist(db).Remove(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s %s is not whitelisted", args[0], args[1])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newWhitelistListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whitelisted users and groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				entries, err := store.NewWhitelist(db).List(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(w, "Whitelist is empty.")
					return nil
				}
				for _, e := range entries {
					role := ""
					if e.IsAdmin {
						role = "admin"
					}
					fmt.Fprintf(w, "%-6s %-28s %s\n", e.SenderType, e.SenderID, role)
				}
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how often each command was used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, db *store.DB) error {
				counts, err := store.NewCommandLog(db).Counts(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(counts) == 0 {
					fmt.Fprintln(w, "No commands recorded yet.")
					return nil
				}
				for _, c := range counts {
					fmt.Fprintf(w, "%-14s %d\n", c.Command, c.Count)
				}
				return nil
			})
		},
	}
}
