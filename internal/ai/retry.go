package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

// RetryPolicy describes exponential backoff applied at the completion boundary.
type RetryPolicy struct {
	MaxAttempts       int // total attempts including the first one
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	// Retryable decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns 3 attempts starting at 1s, doubling, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		Retryable:         IsTransient,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.BackoffMultiplier <= 0 {
		p.BackoffMultiplier = 2
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait before retry number attempt (1-based), capped at MaxDelay.
//
//	attempt 1: BaseDelay
//	attempt 2: BaseDelay * multiplier
//	attempt 3: BaseDelay * multiplier^2
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, the policy gives up, or ctx is done.
// Non-retryable errors are returned immediately, unwrapped.
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}
	p := policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		}
		if !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, p.MaxAttempts, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("retry failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

// StatusError is implemented by provider errors that carry an HTTP status.
type StatusError interface {
	error
	StatusCode() int
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// IsTransient reports rate limits, server errors and network hiccups.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se StatusError
	if errors.As(err, &se) {
		return RetryableStatus(se.StatusCode())
	}
	if code, ok := providerStatus(err); ok {
		return RetryableStatus(code)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
