package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trend-radar/internal/config"
	"trend-radar/internal/metrics"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// Completer is an opaque text completion capability.
type Completer interface {
	// Complete returns the raw completion text for prompt. When wantJSON is set
	// the provider is asked to answer with a JSON object, which callers must
	// still validate.
	Complete(ctx context.Context, prompt string, wantJSON bool) (string, error)
	Name() string
}

// ErrEmptyCompletion is returned when the provider answered with no content.
var ErrEmptyCompletion = errors.New("ai: empty completion")

type retrying struct {
	next   Completer
	policy RetryPolicy
}

// WithRetry decorates c so every call goes through policy.
func WithRetry(c Completer, policy RetryPolicy) Completer {
	if c == nil {
		return nil
	}
	return &retrying{next: c, policy: policy}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	var out string
	attempt := 0
	err := Do(ctx, r.policy, func(ctx context.Context) error {
		attempt++
		text, err := r.next.Complete(ctx, prompt, wantJSON)
		if err != nil {
			metrics.RecordCompletion(r.next.Name(), "error")
			slog.Warn("ai: completion attempt failed", "provider", r.next.Name(), "attempt", attempt, "err", err)
			return err
		}
		metrics.RecordCompletion(r.next.Name(), "ok")
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// New builds the configured provider wrapped in the configured retry policy.
// It returns nil, nil when no API key is configured.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	timeout := config.Duration(cfg.Timeout, 60*time.Second)
	var c Completer
	switch cfg.Provider {
	case "", "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		c = NewOpenAI(Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: timeout})
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		g, err := NewGemini(ctx, Config{APIKey: cfg.GeminiAPIKey, Model: cfg.Model, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		c = g
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
	policy := RetryPolicy{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BaseDelay:         config.Duration(cfg.Retry.BaseDelay, time.Second),
		MaxDelay:          config.Duration(cfg.Retry.MaxDelay, 30*time.Second),
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		Retryable:         IsTransient,
	}
	return WithRetry(c, policy), nil
}

// providerStatus extracts HTTP status codes from the SDK error types.
func providerStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	return 0, false
}
