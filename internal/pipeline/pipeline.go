// Package pipeline turns webhook events into dispatched commands:
// identity resolution, normalization, staleness filtering, access control,
// bookkeeping, classification and dispatch.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gorkbot/gork/internal/command"
	"github.com/gorkbot/gork/internal/dispatch"
	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/inbound"
	"github.com/gorkbot/gork/internal/logging"
)

// Outcome says what Process did with an event.
type Outcome string

const (
	OutcomeDispatched  Outcome = "dispatched"
	OutcomeIgnored     Outcome = "ignored"     // not a message upsert, or nothing to act on
	OutcomeUnresolved  Outcome = "unresolved"  // identity could not be classified
	OutcomeStale       Outcome = "stale"       // older than the staleness threshold
	OutcomeOwnMessage  Outcome = "own_message" // sent by the bot's own account
	OutcomeDuplicate   Outcome = "duplicate"   // same message already in flight
	OutcomeNotAllowed  Outcome = "not_allowed" // rejected by the whitelist
	OutcomeUnaddressed Outcome = "unaddressed" // group chatter not aimed at the bot
)

// IdentityStore records the users and groups the bot sees.
type IdentityStore interface {
	UpsertUser(ctx context.Context, srcID, phone, name string) (domain.User, error)
	UpsertGroup(ctx context.Context, srcID, name string) (domain.Group, error)
}

// CommandRecorder logs dispatched commands.
type CommandRecorder interface {
	Record(ctx context.Context, command string, userID, groupID int64) error
}

// AccessList answers whitelist lookups.
type AccessList interface {
	IsAllowed(ctx context.Context, senderType, senderID string) (bool, error)
}

// Deps wires a Pipeline. Identities, History, Commands, Access and Hooks
// are optional.
type Deps struct {
	Resolver   *inbound.Resolver
	Normalizer *inbound.Normalizer
	Stale      *inbound.StalenessFilter
	Classifier *command.Classifier
	Dispatcher *dispatch.Dispatcher
	Identities IdentityStore
	History    dispatch.History
	Commands   CommandRecorder
	Access     AccessList
	Hooks      *hooks.Manager
	BotNumber  string
	Log        *logging.Logger
}

// Pipeline processes one event at a time per call; calls may run
// concurrently.
type Pipeline struct {
	d   Deps
	log *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Pipeline.
func New(d Deps) *Pipeline {
	return &Pipeline{
		d:        d,
		log:      d.Log.Sub("pipeline"),
		inflight: make(map[string]struct{}),
	}
}

// Handle is Process for worker pools: outcomes are logged, never returned.
func (p *Pipeline) Handle(ctx context.Context, ev *domain.Event) {
	outcome, err := p.Process(ctx, ev)
	if err != nil {
		p.log.Error().Err(err).Str("outcome", string(outcome)).Msg("event processing failed")
		return
	}
	p.log.Debug().Str("outcome", string(outcome)).Msg("event processed")
}

// Process runs one event through the pipeline.
func (p *Pipeline) Process(ctx context.Context, ev *domain.Event) (Outcome, error) {
	if ev == nil || !ev.IsMessageUpsert() {
		return OutcomeIgnored, nil
	}

	key := ev.Data.Key
	res, err := p.d.Resolver.Resolve(key.RemoteJid, key.RemoteJidAlt)
	if err != nil {
		p.log.Debug().Str("remoteJid", key.RemoteJid).Str("remoteJidAlt", key.RemoteJidAlt).Msg("dropping event with unresolved identity")
		return p.drop(ctx, OutcomeUnresolved, key.ID), nil
	}

	msg := p.d.Normalizer.Normalize(ev, res)
	ctx = logging.ContextWith(ctx, "messageId", msg.MessageID)
	ctx = logging.ContextWith(ctx, "remoteId", msg.RemoteID)
	log := p.log.For(ctx)
	if p.d.Stale != nil && p.d.Stale.IsStale(msg.Timestamp) {
		log.Debug().Time("timestamp", msg.Timestamp).Msg("dropping stale event")
		return p.drop(ctx, OutcomeStale, msg.MessageID), nil
	}
	if key.FromMe {
		return p.drop(ctx, OutcomeOwnMessage, msg.MessageID), nil
	}

	if !p.begin(msg.MessageID) {
		return p.drop(ctx, OutcomeDuplicate, msg.MessageID), nil
	}
	defer p.end(msg.MessageID)

	allowed, err := p.allowed(ctx, &msg)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("checking access: %w", err)
	}
	if !allowed {
		return p.drop(ctx, OutcomeNotAllowed, msg.MessageID), nil
	}

	p.d.Hooks.EmitAsync(ctx, hooks.EventMessageReceived, map[string]any{
		"messageId": msg.MessageID,
		"remoteId":  msg.RemoteID,
		"isGroup":   msg.IsGroup,
	})

	userID, groupID, err := p.identify(ctx, &msg)
	if err != nil {
		return OutcomeIgnored, err
	}
	p.remember(ctx, &msg)

	parsed := p.d.Classifier.Classify(msg.Body)
	if !parsed.IsCommand() {
		if msg.Body == "" {
			return OutcomeIgnored, nil
		}
		if msg.IsGroup && !p.addressed(&msg) {
			return p.drop(ctx, OutcomeUnaddressed, msg.MessageID), nil
		}
	} else if p.d.Commands != nil {
		if err := p.d.Commands.Record(ctx, parsed.CommandID, userID, groupID); err != nil {
			log.Warn().Err(err).Str("command", parsed.CommandID).Msg("recording command failed")
		}
	}

	log.Info().
		Str("command", parsed.CommandID).
		Bool("group", msg.IsGroup).
		Msg("dispatching")

	err = p.d.Dispatcher.Dispatch(ctx, &dispatch.Request{
		Msg:     msg,
		Command: parsed,
		UserID:  userID,
		GroupID: groupID,
	})
	if err != nil {
		// The dispatcher has already told the user.
		return OutcomeDispatched, fmt.Errorf("dispatching: %w", err)
	}
	return OutcomeDispatched, nil
}

// InFlight returns the number of events currently being processed.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

func (p *Pipeline) drop(ctx context.Context, o Outcome, messageID string) Outcome {
	p.d.Hooks.EmitAsync(ctx, hooks.EventMessageDropped, map[string]any{
		"messageId": messageID,
		"reason":    string(o),
	})
	return o
}

// begin claims a message id; false means another worker already holds it.
func (p *Pipeline) begin(id string) bool {
	if id == "" {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Pipeline) end(id string) {
	if id == "" {
		return
	}
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

func (p *Pipeline) allowed(ctx context.Context, msg *domain.MessageContext) (bool, error) {
	if p.d.Access == nil {
		return true, nil
	}
	if msg.IsGroup {
		ok, err := p.d.Access.IsAllowed(ctx, domain.SenderGroup, msg.RemoteID)
		if err != nil || ok {
			return ok, err
		}
	}
	for _, id := range []string{msg.UserID(), msg.PhoneNumber} {
		if id == "" {
			continue
		}
		ok, err := p.d.Access.IsAllowed(ctx, domain.SenderUser, id)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (p *Pipeline) identify(ctx context.Context, msg *domain.MessageContext) (userID, groupID int64, err error) {
	if p.d.Identities == nil {
		return 0, 0, nil
	}
	if sender := msg.UserID(); sender != "" {
		u, err := p.d.Identities.UpsertUser(ctx, sender, msg.PhoneNumber, msg.PushName)
		if err != nil {
			return 0, 0, fmt.Errorf("upserting user %s: %w", sender, err)
		}
		userID = u.ID
	}
	if msg.IsGroup {
		g, err := p.d.Identities.UpsertGroup(ctx, msg.RemoteID, "")
		if err != nil {
			return 0, 0, fmt.Errorf("upserting group %s: %w", msg.RemoteID, err)
		}
		groupID = g.ID
	}
	return userID, groupID, nil
}

// remember appends the inbound line to the chat history.
func (p *Pipeline) remember(ctx context.Context, msg *domain.MessageContext) {
	if p.d.History == nil || msg.Body == "" {
		return
	}
	_, err := p.d.History.Append(ctx, domain.StoredMessage{
		ChatID:     msg.RemoteID,
		MessageID:  msg.MessageID,
		SenderID:   msg.UserID(),
		SenderName: msg.PushName,
		Content:    msg.Body,
		CreatedAt:  msg.Timestamp,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("messageId", msg.MessageID).Msg("recording message failed")
	}
}

// addressed reports whether a group message is aimed at the bot.
func (p *Pipeline) addressed(msg *domain.MessageContext) bool {
	if p.d.Classifier.MentionsBot(msg.Body) {
		return true
	}
	return p.d.BotNumber != "" && slices.Contains(msg.Mentions, p.d.BotNumber)
}
