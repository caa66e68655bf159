package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       attempts,
		BaseDelay:         time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2,
		Retryable:         func(error) bool { return true },
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	tests := []struct {
		name             string
		failUntilN       int
		maxAttempts      int
		expectedAttempts int
		shouldSucceed    bool
	}{
		{"success on second attempt", 2, 3, 2, true},
		{"success on last attempt", 3, 3, 3, true},
		{"fail all attempts", 10, 3, 3, false},
		{"single attempt", 10, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), fastPolicy(tt.maxAttempts), func(context.Context) error {
				attempts++
				if attempts < tt.failUntilN {
					return fmt.Errorf("attempt %d failed", attempts)
				}
				return nil
			})
			assert.Equal(t, tt.expectedAttempts, attempts)
			if tt.shouldSucceed {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "retry failed after")
			}
		})
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("bad request")
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	attempts := 0
	err := Do(context.Background(), p, func(context.Context) error {
		attempts++
		return permanent
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, permanent)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.BaseDelay = time.Hour
	p.MaxDelay = time.Hour

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(context.Context) error {
			attempts++
			return errors.New("rate limited")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDo_NilFunction(t *testing.T) {
	assert.Error(t, Do(context.Background(), fastPolicy(1), nil))
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(10))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"openai rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, true},
		{"openai server error", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, true},
		{"openai bad request", &openai.APIError{HTTPStatusCode: 400, Message: "bad"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

type scriptedCompleter struct {
	errs  []error
	calls int
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return "", s.errs[s.calls-1]
	}
	return `{"ok":true}`, nil
}

func TestWithRetry_RetriesRateLimits(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{&openai.APIError{HTTPStatusCode: 429}}}
	p := fastPolicy(3)
	p.Retryable = IsTransient

	c := WithRetry(inner, p)
	out, err := c.Complete(context.Background(), "prompt", true)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "scripted", c.Name())
}

func TestWithRetry_NilCompleter(t *testing.T) {
	assert.Nil(t, WithRetry(nil, DefaultRetryPolicy()))
}
