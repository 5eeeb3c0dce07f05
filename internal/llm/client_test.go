package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorkbot/gork/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) (*OpenAIClient, *[]map[string]any) {
	t.Helper()
	var seen []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "gork/")
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(data, &body))
		seen = append(seen, body)
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewOpenAIClient(srv.URL+"/", "sk-test", "default-model", 5*time.Second), &seen
}

func reply(w http.ResponseWriter, content string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "default-model",
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3},
	})
}

func TestOpenAIClientComplete(t *testing.T) {
	c, seen := newGateway(t, func(w http.ResponseWriter, body map[string]any) {
		reply(w, "  hello there ")
	})

	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)

	body := (*seen)[0]
	assert.Equal(t, "default-model", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "be brief"}, msgs[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, msgs[1])
	assert.NotContains(t, body, "plugins")
	assert.NotContains(t, body, "modalities")
}

func TestOpenAIClientMultimodalAndPlugins(t *testing.T) {
	c, seen := newGateway(t, func(w http.ResponseWriter, body map[string]any) {
		reply(w, "ok")
	})

	_, err := c.Complete(context.Background(), CompletionRequest{
		Model: "vision",
		Messages: []Message{{Role: RoleUser, Parts: []Part{
			TextPart("what is this"),
			ImagePart("data:image/png;base64,AAAA"),
			AudioPart("BBBB", "ogg"),
		}}},
		WebSearch:   true,
		ImageOutput: true,
	})
	require.NoError(t, err)

	body := (*seen)[0]
	assert.Equal(t, "vision", body["model"])
	assert.Equal(t, []any{map[string]any{"id": "web"}}, body["plugins"])
	assert.Equal(t, []any{"image", "text"}, body["modalities"])

	parts := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 3)
	assert.Equal(t, map[string]any{"type": "text", "text": "what is this"}, parts[0])
	assert.Equal(t, map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,AAAA"}}, parts[1])
	assert.Equal(t, map[string]any{"type": "input_audio", "input_audio": map[string]any{"data": "BBBB", "format": "ogg"}}, parts[2])
}

func TestOpenAIClientImages(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, body map[string]any) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"content": "",
				"images": []any{map[string]any{"type": "image_url", "image_url": map[string]any{"url": DataURL("image/png", []byte("pixels"))}}},
			}}},
		})
	})

	resp, err := c.Complete(context.Background(), CompletionRequest{ImageOutput: true})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, []byte("pixels"), resp.Images[0])
}

func TestOpenAIClientErrors(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, body map[string]any) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	})

	_, err := c.Complete(context.Background(), CompletionRequest{})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Equal(t, "slow down", perr.Message)

	empty, _ := newGateway(t, func(w http.ResponseWriter, body map[string]any) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err = empty.Complete(context.Background(), CompletionRequest{})
	assert.ErrorContains(t, err, "no choices")
}

func TestDataURL(t *testing.T) {
	u := DataURL("image/jpeg", []byte("abc"))
	assert.Equal(t, "data:image/jpeg;base64,YWJj", u)

	data, err := DecodeDataURL(u)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	_, err = DecodeDataURL("https://example.com/a.png")
	assert.Error(t, err)
	_, err = DecodeDataURL("data:text/plain,hello")
	assert.Error(t, err)
}

func TestIntentClassifier(t *testing.T) {
	options := []IntentOption{
		{ID: "!sticker", Description: "make a sticker"},
		{ID: "!remember", Description: "set a reminder"},
	}

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"exact id", "!remember", "!remember"},
		{"without bang", "sticker", "!sticker"},
		{"quoted and cased", "`!Remember`.", "!remember"},
		{"none", "none", IntentNone},
		{"unknown", "!dance", IntentNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockClient{CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
				return &CompletionResponse{Content: tt.answer}, nil
			}}
			got, err := NewIntentClassifier(mock, "m", options).Classify(context.Background(), "remind me later")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			reqs := mock.Requests()
			require.Len(t, reqs, 1)
			assert.Contains(t, reqs[0].System, "!sticker: make a sticker")
		})
	}

	t.Run("blank text skips the model", func(t *testing.T) {
		mock := &MockClient{}
		got, err := NewIntentClassifier(mock, "m", options).Classify(context.Background(), "  ")
		require.NoError(t, err)
		assert.Equal(t, IntentNone, got)
		assert.Empty(t, mock.Requests())
	})
}

func TestExtractReminder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		answer  string
		wantAt  time.Time
		wantMsg string
		wantErr string
	}{
		{
			name:    "plain json",
			answer:  `{"remind_at": "2026-03-01T15:00:00Z", "message": "call mom"}`,
			wantAt:  now.Add(3 * time.Hour),
			wantMsg: "call mom",
		},
		{
			name:    "fenced json",
			answer:  "```json\n{\"remind_at\": \"2026-03-02T09:30:00Z\", \"message\": \" gym \"}\n```",
			wantAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			wantMsg: "gym",
		},
		{name: "no time", answer: `{"remind_at": "", "message": ""}`, wantErr: "no reminder time"},
		{name: "bad time", answer: `{"remind_at": "tomorrow", "message": "x"}`, wantErr: "parsing remind_at"},
		{name: "not json", answer: "sure thing!", wantErr: "parsing reminder JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockClient{CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
				return &CompletionResponse{Content: tt.answer}, nil
			}}
			got, err := ExtractReminder(context.Background(), mock, "m", "remind me", now)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantAt.Equal(got.RemindAt))
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.Contains(t, mock.Requests()[0].System, "2026-03-01T12:00:00Z")
		})
	}
}

func TestAsk(t *testing.T) {
	mock := &MockClient{}
	out, err := Ask(context.Background(), mock, "m", "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)

	req := mock.Requests()[0]
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, "prompt", req.Messages[0].Content)
}

func TestFailoverClient(t *testing.T) {
	log := logging.New(nil, "silent")

	t.Run("falls back on retryable errors", func(t *testing.T) {
		mock := &MockClient{CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			if req.Model == "primary" {
				return nil, &ProviderError{Provider: "test", Status: 429, Message: "busy"}
			}
			return &CompletionResponse{Content: "from " + req.Model}, nil
		}}
		f := NewFailoverClient(mock, []string{"backup"}, log)

		resp, err := f.Complete(context.Background(), CompletionRequest{Model: "primary"})
		require.NoError(t, err)
		assert.Equal(t, "from backup", resp.Content)
		assert.Len(t, mock.Requests(), 2)
	})

	t.Run("stops on non-retryable errors", func(t *testing.T) {
		mock := &MockClient{CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return nil, &ProviderError{Provider: "test", Status: 400, Message: "bad request"}
		}}
		f := NewFailoverClient(mock, []string{"backup"}, log)

		_, err := f.Complete(context.Background(), CompletionRequest{Model: "primary"})
		assert.ErrorContains(t, err, "bad request")
		assert.Len(t, mock.Requests(), 1)
	})

	t.Run("returns the last error when all fail", func(t *testing.T) {
		mock := &MockClient{CompleteFunc: func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
			return nil, errors.New(req.Model + " timeout")
		}}
		f := NewFailoverClient(mock, []string{"a", "primary", "b"}, log)

		_, err := f.Complete(context.Background(), CompletionRequest{Model: "primary"})
		assert.EqualError(t, err, "b timeout")
		assert.Len(t, mock.Requests(), 3)
	})
}
