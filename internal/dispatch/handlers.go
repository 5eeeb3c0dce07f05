package dispatch

import (
	"context"
	"time"

	"github.com/gorkbot/gork/internal/command"
	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/gorkbot/gork/internal/scheduler"
)

// Models names the model used for each capability.
type Models struct {
	Text   string
	Vision string
	Image  string
	Audio  string
}

// ReminderStore is the persistence the reminder handlers need.
type ReminderStore interface {
	Create(ctx context.Context, r domain.Reminder) (domain.Reminder, error)
	PendingFor(ctx context.Context, remoteID string) ([]domain.Reminder, error)
	MarkFired(ctx context.Context, id int64) (bool, error)
	Cancel(ctx context.Context, id int64, remoteID string) (bool, error)
}

// JobScheduler is the part of the scheduler the reminder handlers use.
type JobScheduler interface {
	Schedule(id string, fireAt time.Time, run scheduler.Func) error
	Cancel(id string) bool
}

// Deps carries the capabilities handlers draw from. Each handler keeps
// only what it uses.
type Deps struct {
	Out          *Outbox
	History      History
	Model        llm.Client
	Models       Models
	Registry     *command.Registry
	Reminders    ReminderStore
	Scheduler    JobScheduler
	Hooks        *hooks.Manager
	BotName      string
	HistoryLimit int
	Now          func() time.Time
	Log          *logging.Logger
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Handlers builds the handler for every default command.
func Handlers(d Deps) map[string]Handler {
	firer := NewReminderFirer(d.Reminders, d.Out, d.Hooks, d.Log)
	return map[string]Handler{
		command.Help:       &helpHandler{out: d.Out, reg: d.Registry, botName: d.BotName},
		command.Model:      &modelHandler{out: d.Out, models: d.Models},
		command.Resume:     &resumeHandler{out: d.Out, history: d.History, model: d.Model, name: d.Models.Text},
		command.Search:     &searchHandler{out: d.Out, model: d.Model, name: d.Models.Text},
		command.Sticker:    &stickerHandler{out: d.Out, model: d.Model, name: d.Models.Image},
		command.Image:      &imageHandler{out: d.Out, model: d.Model, name: d.Models.Image},
		command.Transcribe: &transcribeHandler{out: d.Out, model: d.Model, name: d.Models.Audio},
		command.Remember: &rememberHandler{
			out:       d.Out,
			store:     d.Reminders,
			scheduler: d.Scheduler,
			firer:     firer,
			model:     d.Model,
			name:      d.Models.Text,
			hooks:     d.Hooks,
			now:       d.now,
		},
		command.Reminders: &remindersHandler{out: d.Out, store: d.Reminders},
		command.Forget:    &forgetHandler{out: d.Out, store: d.Reminders, scheduler: d.Scheduler, hooks: d.Hooks},
	}
}

// Conversation builds the free-text fallback handler.
func Conversation(d Deps) Handler {
	limit := d.HistoryLimit
	if limit <= 0 {
		limit = 20
	}
	return &conversationHandler{
		out:     d.Out,
		history: d.History,
		model:   d.Model,
		name:    d.Models.Text,
		botName: d.BotName,
		limit:   limit,
		now:     d.now,
	}
}

// IntentOptions lists the commands free text may be routed to.
func IntentOptions(reg *command.Registry) []llm.IntentOption {
	var out []llm.IntentOption
	for _, e := range reg.Entries() {
		if e.Hidden || e.ID == command.Help {
			continue
		}
		out = append(out, llm.IntentOption{ID: e.ID, Description: e.Description})
	}
	return out
}
