package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// IntentNone is returned when free text maps onto no command.
const IntentNone = "none"

// IntentOption is a command the classifier may choose.
type IntentOption struct {
	ID          string
	Description string
}

// IntentClassifier maps free text onto one of a fixed set of commands.
type IntentClassifier struct {
	client  Client
	model   string
	options []IntentOption
}

// NewIntentClassifier creates a classifier choosing among options.
func NewIntentClassifier(client Client, model string, options []IntentOption) *IntentClassifier {
	return &IntentClassifier{client: client, model: model, options: options}
}

// Classify returns the chosen command id, or IntentNone.
func (c *IntentClassifier) Classify(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" || len(c.options) == 0 {
		return IntentNone, nil
	}

	var sb strings.Builder
	sb.WriteString("You route WhatsApp messages to bot commands. ")
	sb.WriteString("Answer with exactly one command id from the list, or \"none\" when the user is just chatting.\n\n")
	for _, o := range c.options {
		fmt.Fprintf(&sb, "%s: %s\n", o.ID, o.Description)
	}

	temp := 0.0
	resp, err := c.client.Complete(ctx, CompletionRequest{
		Model:       c.model,
		System:      sb.String(),
		Messages:    []Message{{Role: RoleUser, Content: text}},
		MaxTokens:   16,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("classifying intent: %w", err)
	}

	answer := strings.ToLower(strings.Trim(strings.TrimSpace(resp.Content), "`\"'. "))
	for _, o := range c.options {
		if answer == strings.ToLower(o.ID) || "!"+answer == strings.ToLower(o.ID) {
			return o.ID, nil
		}
	}
	return IntentNone, nil
}

// ExtractedReminder is the model's reading of a reminder request.
type ExtractedReminder struct {
	RemindAt time.Time
	Message  string
}

// ExtractReminder asks the model for the time and text of a reminder
// request. now anchors relative expressions.
func ExtractReminder(ctx context.Context, client Client, model, text string, now time.Time) (ExtractedReminder, error) {
	system := "Extract a reminder from the user's message. " +
		"The current time is " + now.Format(time.RFC3339) + ". " +
		`Reply with JSON only: {"remind_at": "<RFC3339 timestamp>", "message": "<what to remind>"}. ` +
		`If there is no time, reply {"remind_at": "", "message": ""}.`

	temp := 0.0
	resp, err := client.Complete(ctx, CompletionRequest{
		Model:       model,
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: text}},
		Temperature: &temp,
	})
	if err != nil {
		return ExtractedReminder{}, fmt.Errorf("extracting reminder: %w", err)
	}

	var raw struct {
		RemindAt string `json:"remind_at"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &raw); err != nil {
		return ExtractedReminder{}, fmt.Errorf("parsing reminder JSON: %w", err)
	}
	if raw.RemindAt == "" {
		return ExtractedReminder{}, fmt.Errorf("no reminder time found")
	}
	at, err := time.Parse(time.RFC3339, raw.RemindAt)
	if err != nil {
		return ExtractedReminder{}, fmt.Errorf("parsing remind_at %q: %w", raw.RemindAt, err)
	}
	return ExtractedReminder{RemindAt: at, Message: strings.TrimSpace(raw.Message)}, nil
}

// stripFences removes a surrounding ``` block, which models add often.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
