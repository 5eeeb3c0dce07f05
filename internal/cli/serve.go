package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gorkbot/gork/internal/command"
	"github.com/gorkbot/gork/internal/config"
	"github.com/gorkbot/gork/internal/dispatch"
	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/evolution"
	"github.com/gorkbot/gork/internal/gateway"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/inbound"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/gorkbot/gork/internal/pipeline"
	"github.com/gorkbot/gork/internal/scheduler"
	"github.com/gorkbot/gork/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server, the worker pool and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if logLevel == "" {
				log = logging.NewConsole(cfg.Logging.ConsoleStyle, cfg.Logging.Level)
			}

			issues := config.ValidateForServe(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}

// serve wires the bot together and runs its three loops until ctx ends or
// one of them fails.
func serve(ctx context.Context, cfg config.Config) error {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	hookMgr := hooks.NewManager(log)

	evo := evolution.NewClient(
		cfg.Evolution.BaseURL,
		cfg.Evolution.Instance,
		cfg.Evolution.APIKey,
		log,
		evolution.WithRateLimit(cfg.Evolution.RequestsPerSecond),
		evolution.WithTimeout(cfg.Evolution.Timeout()),
	)
	model := newModelClient(cfg.Model)

	reg := command.Default()
	history := store.NewMessageStore(db)
	reminders := store.NewReminderStore(db)

	sched := scheduler.New(log,
		scheduler.WithTick(cfg.Scheduler.Tick()),
		scheduler.WithMaxConcurrent(cfg.Scheduler.MaxConcurrent),
	)

	out := dispatch.NewOutbox(evo, history, cfg.Pipeline.BotName, hookMgr, log)
	deps := dispatch.Deps{
		Out:     out,
		History: history,
		Model:   model,
		Models: dispatch.Models{
			Text:   cfg.Model.TextModel,
			Vision: cfg.Model.VisionModel,
			Image:  cfg.Model.ImageModel,
			Audio:  cfg.Model.AudioModel,
		},
		Registry:     reg,
		Reminders:    reminders,
		Scheduler:    sched,
		Hooks:        hookMgr,
		BotName:      cfg.Pipeline.BotName,
		HistoryLimit: cfg.Pipeline.HistoryLimit,
		Log:          log,
	}
	intent := llm.NewIntentClassifier(model, cfg.Model.TextModel, dispatch.IntentOptions(reg))
	dispatcher, err := dispatch.New(reg, dispatch.Handlers(deps), dispatch.Conversation(deps), out, log,
		dispatch.WithIntentRouter(intent),
		dispatch.WithHooks(hookMgr),
	)
	if err != nil {
		return err
	}

	firer := dispatch.NewReminderFirer(reminders, out, hookMgr, log)
	restored, err := scheduler.Rehydrate(ctx, sched, reminders, firer.Job)
	if err != nil {
		return fmt.Errorf("restoring reminders: %w", err)
	}
	log.Info().Int("reminders", restored).Msg("pending reminders restored")

	resolver := inbound.NewResolver(inbound.DefaultMarkers)
	pd := pipeline.Deps{
		Resolver:   resolver,
		Normalizer: inbound.NewNormalizer(resolver),
		Stale:      inbound.NewStalenessFilter(cfg.Pipeline.StaleAfter()),
		Classifier: command.NewClassifier(reg,
			command.WithBotName(cfg.Pipeline.BotName),
			command.WithStripMentions(cfg.Pipeline.StripMentionsEnabled()),
		),
		Dispatcher: dispatcher,
		Identities: store.NewIdentityStore(db),
		History:    history,
		Commands:   store.NewCommandLog(db),
		Hooks:      hookMgr,
		BotNumber:  cfg.Pipeline.BotNumber,
		Log:        log,
	}
	if cfg.Access.Mode == "whitelist" {
		pd.Access = store.NewWhitelist(db)
		log.Info().Msg("whitelist access mode enabled")
	}
	p := pipeline.New(pd)

	pool := pipeline.NewPool[*domain.Event](cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, p.Handle, log)
	srv := gateway.New(cfg, pool, log, gateway.WithHooks(hookMgr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(gctx) })
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })
	return g.Wait()
}
