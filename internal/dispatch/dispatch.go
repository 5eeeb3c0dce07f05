// Package dispatch routes classified messages to their handlers and
// contains the handlers themselves.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"github.com/gorkbot/gork/internal/command"
	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/llm"
	"github.com/gorkbot/gork/internal/logging"
)

// genericFailure is sent when a handler fails without a user-facing reason.
const genericFailure = "Sorry, something went wrong while handling your message. Please try again later."

// Request is everything a handler may read about one inbound message.
type Request struct {
	Msg     domain.MessageContext
	Command domain.ParsedCommand
	UserID  int64 // users.id of the sender, zero when unknown
	GroupID int64 // chat_groups.id, zero in private chats
}

// Handler executes one command.
type Handler interface {
	Handle(ctx context.Context, req *Request) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) error { return f(ctx, req) }

// UserError is a failure whose message is shown to the user verbatim.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf builds a UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IntentRouter maps free text onto a command id, or llm.IntentNone.
type IntentRouter interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Dispatcher routes a Request to exactly one handler.
type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler
	intent   IntentRouter
	out      *Outbox
	hooks    *hooks.Manager
	log      *logging.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIntentRouter routes free text to a command before the fallback runs.
func WithIntentRouter(r IntentRouter) Option {
	return func(d *Dispatcher) { d.intent = r }
}

// WithHooks emits command_dispatched events.
func WithHooks(h *hooks.Manager) Option {
	return func(d *Dispatcher) { d.hooks = h }
}

// New builds a dispatcher. Every registry entry needs a handler and every
// handler needs a registry entry. fallback handles free text and may be nil.
func New(reg *command.Registry, handlers map[string]Handler, fallback Handler, out *Outbox, log *logging.Logger, opts ...Option) (*Dispatcher, error) {
	var missing []string
	for _, id := range reg.IDs() {
		if handlers[id] == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dispatch: no handler for %v", missing)
	}
	for id := range handlers {
		if _, ok := reg.Lookup(id); !ok {
			return nil, fmt.Errorf("dispatch: handler for unknown command %q", id)
		}
	}

	d := &Dispatcher{
		handlers: make(map[string]Handler, len(handlers)),
		fallback: fallback,
		out:      out,
		log:      log.Sub("dispatch"),
	}
	for id, h := range handlers {
		d.handlers[id] = h
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Commands returns the routed command ids, sorted.
func (d *Dispatcher) Commands() []string {
	ids := make([]string, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Dispatch runs the handler for req. Handler errors and panics are logged
// and answered with a best-effort message; the returned error is for the
// caller's bookkeeping only.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) error {
	log := d.log.For(ctx)
	h, route := d.resolve(ctx, req)
	if h == nil {
		log.Debug().Msg("no handler for free text")
		return nil
	}

	d.hooks.EmitAsync(ctx, hooks.EventCommandDispatched, map[string]any{
		"command":   route,
		"messageId": req.Msg.MessageID,
		"remoteId":  req.Msg.RemoteID,
	})

	err := d.run(ctx, h, req)
	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("command", route).Msg("handler failed")

	reply := genericFailure
	var ue *UserError
	if errors.As(err, &ue) {
		reply = ue.Message
	}
	if d.out != nil && ctx.Err() == nil {
		if sendErr := d.out.Reply(ctx, &req.Msg, reply); sendErr != nil {
			log.Warn().Err(sendErr).Msg("could not report handler failure")
		}
	}
	return err
}

// resolve picks the handler and the name it is logged under.
func (d *Dispatcher) resolve(ctx context.Context, req *Request) (Handler, string) {
	if id := req.Command.CommandID; id != "" {
		return d.handlers[id], id
	}

	if d.intent != nil && req.Command.Clean != "" {
		id, err := d.intent.Classify(ctx, req.Command.Clean)
		if err != nil {
			d.log.For(ctx).Warn().Err(err).Msg("intent routing failed, using fallback")
		} else if h, ok := d.handlers[id]; ok && id != llm.IntentNone {
			req.Command.CommandID = id
			return h, id
		}
	}

	return d.fallback, "fallback"
}

func (d *Dispatcher) run(ctx context.Context, h Handler, req *Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.For(ctx).Error().
				Str("stack", string(debug.Stack())).
				Msgf("handler panic: %v", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, req)
}
