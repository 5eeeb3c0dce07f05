package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/gorkbot/gork/internal/logging"
	"github.com/gorkbot/gork/internal/scheduler"
	"github.com/gorkbot/gork/internal/when"
)

// reminderTimeLayout is how reminder times are shown to users.
const reminderTimeLayout = "02/01/2006 15:04"

// FormatReminderTime renders t in the server's zone.
func FormatReminderTime(t time.Time) string {
	return t.Local().Format(reminderTimeLayout)
}

// ReminderFirer builds the scheduler callbacks that deliver reminders.
type ReminderFirer struct {
	store ReminderStore
	out   *Outbox
	hooks *hooks.Manager
	log   *logging.Logger
}

// NewReminderFirer creates a ReminderFirer.
func NewReminderFirer(store ReminderStore, out *Outbox, h *hooks.Manager, log *logging.Logger) *ReminderFirer {
	return &ReminderFirer{store: store, out: out, hooks: h, log: log.Sub("reminders")}
}

// Job returns the callback for rem. The row is marked fired before the
// message goes out, so a reminder is delivered at most once even when the
// callback races a restart.
func (f *ReminderFirer) Job(rem domain.Reminder) scheduler.Func {
	return func(ctx context.Context) error {
		ok, err := f.store.MarkFired(ctx, rem.ID)
		if err != nil {
			return err
		}
		if !ok {
			f.log.Debug().Int64("id", rem.ID).Msg("reminder no longer pending, skipping")
			return nil
		}
		if err := f.out.Send(ctx, rem.RemoteID, domain.ReminderPrefix+rem.Message); err != nil {
			return fmt.Errorf("delivering reminder %d: %w", rem.ID, err)
		}
		f.hooks.EmitAsync(ctx, hooks.EventReminderFired, map[string]any{"id": rem.ID, "remoteId": rem.RemoteID})
		f.log.Info().Int64("id", rem.ID).Str("remoteId", rem.RemoteID).Msg("reminder delivered")
		return nil
	}
}

type rememberHandler struct {
	out       *Outbox
	store     ReminderStore
	scheduler JobScheduler
	firer     *ReminderFirer
	model     llm.Client
	name      string
	hooks     *hooks.Manager
	now       func() time.Time
}

func (h *rememberHandler) Handle(ctx context.Context, req *Request) error {
	text := req.Command.Clean
	if text == "" {
		return Userf("Tell me when and what, e.g. !remember in 10 minutes to call mom")
	}

	now := h.now()
	at, message, err := h.parse(ctx, text, now)
	if err != nil {
		return err
	}
	if message == "" {
		message = req.Msg.QuotedText
	}
	if message == "" {
		message = text
	}
	if !at.After(now) {
		return Userf("That time has already passed.")
	}

	rem, err := h.store.Create(ctx, domain.Reminder{
		UserID:   req.UserID,
		GroupID:  req.GroupID,
		RemoteID: req.Msg.RemoteID,
		Message:  message,
		RemindAt: at,
	})
	if err != nil {
		return fmt.Errorf("saving reminder: %w", err)
	}
	if err := h.scheduler.Schedule(scheduler.ReminderJobID(rem.ID), rem.RemindAt, h.firer.Job(rem)); err != nil {
		err = fmt.Errorf("scheduling reminder %d: %w", rem.ID, err)
		// An unscheduled row left pending would fire on the next restart.
		if _, cerr := h.store.Cancel(ctx, rem.ID, ""); cerr != nil {
			err = errors.Join(err, fmt.Errorf("cancelling unscheduled reminder %d: %w", rem.ID, cerr))
		}
		return err
	}

	h.hooks.EmitAsync(ctx, hooks.EventReminderScheduled, map[string]any{
		"id":       rem.ID,
		"remoteId": rem.RemoteID,
		"remindAt": rem.RemindAt,
	})
	return h.out.Reply(ctx, &req.Msg, fmt.Sprintf("Reminder #%d set for %s: %s", rem.ID, FormatReminderTime(rem.RemindAt), message))
}

// parse reads the time deterministically first and asks the model only
// when that fails.
func (h *rememberHandler) parse(ctx context.Context, text string, now time.Time) (time.Time, string, error) {
	if res, ok := when.Parse(text, now); ok {
		return res.At, res.Message, nil
	}
	if h.model == nil || h.name == "" {
		return time.Time{}, "", Userf("I could not tell when to remind you. Try \"in 10 minutes\" or \"tomorrow at 9\".")
	}
	ex, err := llm.ExtractReminder(ctx, h.model, h.name, text, now)
	if err != nil {
		return time.Time{}, "", Userf("I could not tell when to remind you. Try \"in 10 minutes\" or \"tomorrow at 9\".")
	}
	return ex.RemindAt, ex.Message, nil
}

type remindersHandler struct {
	out   *Outbox
	store ReminderStore
}

func (h *remindersHandler) Handle(ctx context.Context, req *Request) error {
	pending, err := h.store.PendingFor(ctx, req.Msg.RemoteID)
	if err != nil {
		return fmt.Errorf("listing reminders: %w", err)
	}
	if len(pending) == 0 {
		return h.out.Reply(ctx, &req.Msg, "No pending reminders.")
	}

	var b strings.Builder
	b.WriteString("*Pending reminders*\n")
	for _, r := range pending {
		fmt.Fprintf(&b, "#%d  %s  %s\n", r.ID, FormatReminderTime(r.RemindAt), r.Message)
	}
	b.WriteString("Cancel one with !forget :id=<number>")
	return h.out.Reply(ctx, &req.Msg, b.String())
}

type forgetHandler struct {
	out       *Outbox
	store     ReminderStore
	scheduler JobScheduler
	hooks     *hooks.Manager
}

func (h *forgetHandler) Handle(ctx context.Context, req *Request) error {
	id, ok := req.Command.Params.Int("id")
	if !ok {
		n, err := strconv.Atoi(strings.TrimPrefix(req.Command.Clean, "#"))
		if err != nil {
			return Userf("Which reminder? e.g. !forget :id=3")
		}
		id = n
	}

	cancelled, err := h.store.Cancel(ctx, int64(id), req.Msg.RemoteID)
	if err != nil {
		return fmt.Errorf("cancelling reminder %d: %w", id, err)
	}
	if !cancelled {
		return Userf("There is no pending reminder #%d in this chat.", id)
	}
	h.scheduler.Cancel(scheduler.ReminderJobID(int64(id)))

	h.hooks.EmitAsync(ctx, hooks.EventReminderCancelled, map[string]any{"id": id, "remoteId": req.Msg.RemoteID})
	return h.out.Reply(ctx, &req.Msg, fmt.Sprintf("Reminder #%d cancelled.", id))
}
