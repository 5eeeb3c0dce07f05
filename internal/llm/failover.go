package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/gorkbot/gork/internal/logging"
)

// FailoverClient retries a request with fallback models on the same
// gateway when the primary model fails with a retryable error.
type FailoverClient struct {
	client    Client
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient wraps client. The request's own model is tried first,
// then each fallback in order.
func NewFailoverClient(client Client, fallbacks []string, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		client:    client,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Name returns the wrapped provider name.
func (f *FailoverClient) Name() string { return f.client.Name() }

// Complete tries the requested model, falling back on retryable errors.
func (f *FailoverClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	models := append([]string{req.Model}, f.fallbacks...)

	var lastErr error
	for i, model := range models {
		if i > 0 && model == req.Model {
			continue
		}
		attempt := req
		attempt.Model = model
		resp, err := f.client.Complete(ctx, attempt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
		f.log.Warn().
			Str("model", model).
			Err(err).
			Msg("retryable error, trying next model")
	}
	return nil, lastErr
}

// isRetryable checks if the error suggests trying another model.
func isRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Status {
		case 402, 404, 408, 429, 500, 502, 503, 529:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout")
}
