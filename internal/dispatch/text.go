package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorkbot/gork/internal/domain"
	"github.com/gorkbot/gork/internal/llm"
)

// resumeWindow is how many chat lines !resume summarizes.
const resumeWindow = 30

type resumeHandler struct {
	out     *Outbox
	history History
	model   llm.Client
	name    string
}

func (h *resumeHandler) Handle(ctx context.Context, req *Request) error {
	lines, err := h.history.Recent(ctx, req.Msg.RemoteID, resumeWindow+1)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	lines = withoutMessage(lines, req.Msg.MessageID)
	if len(lines) == 0 {
		return Userf("Nothing to summarize yet.")
	}

	var transcript strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&transcript, "%s: %s\n", speaker(l), l.Content)
	}

	summary, err := llm.Ask(ctx, h.model, h.name,
		"Summarize this WhatsApp conversation in a few short bullet points, in the language the participants use.",
		transcript.String())
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}
	return h.out.Reply(ctx, &req.Msg, summary)
}

type searchHandler struct {
	out   *Outbox
	model llm.Client
	name  string
}

func (h *searchHandler) Handle(ctx context.Context, req *Request) error {
	query := req.Command.Clean
	if query == "" {
		query = req.Msg.QuotedText
	}
	if query == "" {
		return Userf("Tell me what to search, e.g. !search weather in Lisbon")
	}

	resp, err := h.model.Complete(ctx, llm.CompletionRequest{
		Model:     h.name,
		System:    "Answer using web results. Be brief and list the source links at the end.",
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: query}},
		WebSearch: true,
	})
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	return h.out.Reply(ctx, &req.Msg, resp.Content)
}

type conversationHandler struct {
	out     *Outbox
	history History
	model   llm.Client
	name    string
	botName string
	limit   int
	now     func() time.Time
}

func (h *conversationHandler) Handle(ctx context.Context, req *Request) error {
	lines, err := h.history.Recent(ctx, req.Msg.RemoteID, h.limit+1)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	lines = withoutMessage(lines, req.Msg.MessageID)

	msgs := make([]llm.Message, 0, len(lines)+1)
	for _, l := range lines {
		if l.FromBot {
			msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: l.Content})
			continue
		}
		content := l.Content
		if req.Msg.IsGroup {
			content = speaker(l) + ": " + content
		}
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: content})
	}

	text := req.Command.Clean
	if text == "" {
		text = req.Msg.Body
	}
	if req.Msg.QuotedText != "" {
		text = fmt.Sprintf("(replying to: %q) %s", req.Msg.QuotedText, text)
	}
	if req.Msg.IsGroup && req.Msg.PushName != "" {
		text = req.Msg.PushName + ": " + text
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	resp, err := h.model.Complete(ctx, llm.CompletionRequest{
		Model: h.name,
		System: buildSystemPrompt(promptConfig{
			BotName:  h.botName,
			IsGroup:  req.Msg.IsGroup,
			UserName: req.Msg.PushName,
			Now:      h.now(),
		}),
		Messages: msgs,
	})
	if err != nil {
		return fmt.Errorf("conversation: %w", err)
	}
	if resp.Content == "" {
		return nil
	}
	return h.out.Reply(ctx, &req.Msg, resp.Content)
}

func withoutMessage(lines []domain.StoredMessage, messageID string) []domain.StoredMessage {
	out := lines[:0:0]
	for _, l := range lines {
		if messageID != "" && l.MessageID == messageID {
			continue
		}
		out = append(out, l)
	}
	return out
}

func speaker(m domain.StoredMessage) string {
	switch {
	case m.SenderName != "":
		return m.SenderName
	case m.SenderID != "":
		return m.SenderID
	}
	return "someone"
}
