package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/hooks"
	"github.com/gorkbot/gork/internal/logging"
)

// History persists chat lines and reads them back oldest first.
type History interface {
	Append(ctx context.Context, m domain.StoredMessage) (int64, error)
	Recent(ctx context.Context, chatID string, limit int) ([]domain.StoredMessage, error)
}

// Outbox sends text through the messenger and records every bot line in
// the chat history.
type Outbox struct {
	messenger domain.Messenger
	history   History
	botName   string
	hooks     *hooks.Manager
	log       *logging.Logger
}

// NewOutbox creates an Outbox. history and h may be nil.
func NewOutbox(m domain.Messenger, history History, botName string, h *hooks.Manager, log *logging.Logger) *Outbox {
	return &Outbox{
		messenger: m,
		history:   history,
		botName:   botName,
		hooks:     h,
		log:       log.Sub("outbox"),
	}
}

// Messenger returns the underlying messenger for media sends.
func (o *Outbox) Messenger() domain.Messenger { return o.messenger }

// Reply answers msg in its chat, quoting it.
func (o *Outbox) Reply(ctx context.Context, msg *domain.MessageContext, text string) error {
	return o.send(ctx, msg.RemoteID, text, msg.MessageID)
}

// Send posts text to a chat without quoting anything.
func (o *Outbox) Send(ctx context.Context, to, text string) error {
	return o.send(ctx, to, text, "")
}

func (o *Outbox) send(ctx context.Context, to, text, replyTo string) error {
	if err := o.messenger.SendText(ctx, to, text, replyTo); err != nil {
		return err
	}
	o.record(ctx, to, text)
	o.hooks.EmitAsync(ctx, hooks.EventReplySent, map[string]any{"remoteId": to, "chars": len(text)})
	return nil
}

// record stores a bot-authored line. Failures only cost history.
func (o *Outbox) record(ctx context.Context, chatID, text string) {
	if o.history == nil {
		return
	}
	_, err := o.history.Append(ctx, domain.StoredMessage{
		ChatID:     chatID,
		MessageID:  "bot-" + uuid.NewString(),
		SenderName: o.botName,
		Content:    text,
		FromBot:    true,
	})
	if err != nil {
		o.log.Warn().Err(err).Str("chatId", chatID).Msg("recording bot reply failed")
	}
}
