package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// promptConfig controls system prompt generation for conversation.
type promptConfig struct {
	BotName  string
	IsGroup  bool
	UserName string
	Now      time.Time
	Extra    string
}

// buildSystemPrompt constructs the system prompt for free conversation.
func buildSystemPrompt(cfg promptConfig) string {
	var b strings.Builder

	name := cfg.BotName
	if name == "" {
		name = "the bot"
	}
	fmt.Fprintf(&b, "You are %s, a bot living in WhatsApp chats.\n\n", name)

	fmt.Fprintf(&b, "Current date: %s\n", cfg.Now.Format("2006-01-02 15:04 MST"))
	if cfg.IsGroup {
		b.WriteString("Chat type: group\n")
	} else {
		b.WriteString("Chat type: private\n")
	}
	if cfg.UserName != "" {
		fmt.Fprintf(&b, "User: %s\n", cfg.UserName)
	}

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Answer in the language of the last message.\n")
	b.WriteString("- Keep replies short; this is a chat, not an essay.\n")
	b.WriteString("- Use WhatsApp formatting (*bold*, _italic_) instead of markdown headers.\n")
	if cfg.IsGroup {
		b.WriteString("- History lines are prefixed with the sender's name.\n")
	}

	if cfg.Extra != "" {
		b.WriteString("\n")
		b.WriteString(cfg.Extra)
		b.WriteString("\n")
	}
	return b.String()
}
