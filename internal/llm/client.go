// Package llm defines the model client interface and the OpenAI-compatible
// gateway client used for conversation, vision, image generation and
// transcription.
package llm

import (
	"context"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part types for multimodal messages.
const (
	PartText  = "text"
	PartImage = "image_url"
	PartAudio = "input_audio"
)

// Part is one piece of a multimodal message.
type Part struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`    // http(s) or data: URL
	AudioData   string `json:"audioData,omitempty"`   // base64
	AudioFormat string `json:"audioFormat,omitempty"` // "mp3", "wav", "ogg"
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Type: PartText, Text: s} }

// ImagePart builds an image part from a URL or data URL.
func ImagePart(url string) Part { return Part{Type: PartImage, ImageURL: url} }

// AudioPart builds an audio part from base64 data.
func AudioPart(data, format string) Part {
	return Part{Type: PartAudio, AudioData: data, AudioFormat: format}
}

// Message is a single turn in a conversation. Parts, when set, take
// precedence over Content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string    `json:"model,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	WebSearch   bool      `json:"webSearch,omitempty"`   // enable the gateway's web plugin
	ImageOutput bool      `json:"imageOutput,omitempty"` // ask for generated images
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Images   [][]byte      `json:"-"`
	Usage    Usage         `json:"usage"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Client is the interface all model providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Ask is a helper for single-prompt text completions.
func Ask(ctx context.Context, c Client, model, system, prompt string) (string, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		Model:    model,
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
