package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorkbot/gork/internal/version"
)

// ProviderError is a non-2xx answer from the model gateway.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: API error (%d): %s", e.Provider, e.Status, e.Message)
}

// OpenAIClient is a direct HTTP client for OpenAI-compatible chat
// completion gateways such as OpenRouter.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIClient creates a client. model is used when a request leaves
// Model empty.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (o *OpenAIClient) Name() string { return "openai-compatible" }

// Complete sends a non-streaming chat completion request.
func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(o.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: "no choices returned"}
	}

	msg := result.Choices[0].Message
	out := &CompletionResponse{
		Content:  strings.TrimSpace(msg.Content),
		Model:    result.Model,
		Duration: time.Since(start),
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
	}
	for _, img := range msg.Images {
		data, err := DecodeDataURL(img.ImageURL.URL)
		if err != nil {
			return nil, fmt.Errorf("decoding generated image: %w", err)
		}
		out.Images = append(out.Images, data)
	}
	return out, nil
}

func (o *OpenAIClient) buildRequest(req CompletionRequest) chatRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}
	cr := chatRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, toChatMessage(m))
	}
	if req.WebSearch {
		cr.Plugins = []chatPlugin{{ID: "web"}}
	}
	if req.ImageOutput {
		cr.Modalities = []string{"image", "text"}
	}
	return cr
}

func toChatMessage(m Message) chatMessage {
	if len(m.Parts) == 0 {
		return chatMessage{Role: m.Role, Content: m.Content}
	}
	parts := make([]chatPart, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case PartImage:
			parts = append(parts, chatPart{Type: PartImage, ImageURL: &chatURL{URL: p.ImageURL}})
		case PartAudio:
			parts = append(parts, chatPart{Type: PartAudio, InputAudio: &chatAudio{Data: p.AudioData, Format: p.AudioFormat}})
		default:
			parts = append(parts, chatPart{Type: PartText, Text: p.Text})
		}
	}
	return chatMessage{Role: m.Role, Content: parts}
}

func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := string(body)
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

// DataURL encodes data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the payload of a base64 data URL.
func DecodeDataURL(u string) ([]byte, error) {
	if !strings.HasPrefix(u, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	_, payload, ok := strings.Cut(u, ";base64,")
	if !ok {
		return nil, fmt.Errorf("data URL is not base64")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// API request/response structures

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Plugins     []chatPlugin  `json:"plugins,omitempty"`
	Modalities  []string      `json:"modalities,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []chatPart
}

type chatPart struct {
	Type       string     `json:"type"`
	Text       string     `json:"text,omitempty"`
	ImageURL   *chatURL   `json:"image_url,omitempty"`
	InputAudio *chatAudio `json:"input_audio,omitempty"`
}

type chatURL struct {
	URL string `json:"url"`
}

type chatAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type chatPlugin struct {
	ID string `json:"id"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL chatURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
