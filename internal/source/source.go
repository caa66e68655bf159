// Package source defines the trend candidate fetchers and the guard that
// keeps one failing source from affecting the others.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trend-radar/internal/metrics"
	"trend-radar/internal/model"
)

// Fetcher enumerates candidates from one external source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawTrendCandidate, error)
}

// UnavailableError means a source could not be read: network failure,
// non-2xx status, malformed payload, timeout or panic.
type UnavailableError struct {
	Source  string
	Err     error
	Timeout bool
}

func (e *UnavailableError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("source %s: timed out: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s: unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// StatusError is returned by clients for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Result is the outcome of one guarded fetch.
type Result struct {
	Source     string
	Candidates []model.RawTrendCandidate
	Err        *UnavailableError
	Elapsed    time.Duration
}

// Guard runs f with its own timeout and never fails: errors and panics are
// logged, recorded and turned into an empty result carrying the error.
func Guard(ctx context.Context, f Fetcher, timeout time.Duration) (res Result) {
	res.Source = f.Name()
	start := time.Now()
	fctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		res.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			res.Candidates = nil
			res.Err = &UnavailableError{Source: res.Source, Err: fmt.Errorf("panic: %v", r)}
		}
		status := "ok"
		if res.Err != nil {
			status = "error"
			if res.Err.Timeout {
				status = "timeout"
			}
			slog.Warn("source: fetch failed", "source", res.Source, "timeout", res.Err.Timeout, "err", res.Err.Err)
		} else {
			slog.Info("source: fetch done", "source", res.Source, "count", len(res.Candidates), "elapsed", res.Elapsed)
		}
		metrics.RecordFetch(res.Source, status, res.Elapsed.Seconds())
	}()

	cands, err := f.Fetch(fctx)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded)
		res.Err = &UnavailableError{Source: res.Source, Err: err, Timeout: timedOut}
		return res
	}
	res.Candidates = withProvenance(cands, res.Source)
	return res
}

// withProvenance drops untitled candidates and fills in missing source names.
func withProvenance(in []model.RawTrendCandidate, name string) []model.RawTrendCandidate {
	out := make([]model.RawTrendCandidate, 0, len(in))
	for _, c := range in {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if c.SourceName == "" {
			c.SourceName = name
		}
		out = append(out, c)
	}
	return out
}

// Keywords is a case-insensitive allow-list for noisy sources. An empty list
// allows everything.
type Keywords []string

// Allow reports whether any keyword is a substring of text.
func (k Keywords) Allow(text string) bool {
	if len(k) == 0 {
		return true
	}
	lt := strings.ToLower(text)
	for _, kw := range k {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lt, kw) {
			return true
		}
	}
	return false
}

// Match returns the first keyword contained in text, or "".
func (k Keywords) Match(text string) string {
	lt := strings.ToLower(text)
	for _, kw := range k {
		kw = strings.TrimSpace(kw)
		if kw != "" && strings.Contains(lt, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc struct {
	SourceName string
	Fn         func(ctx context.Context) ([]model.RawTrendCandidate, error)
}

func (f FetcherFunc) Name() string { return f.SourceName }

func (f FetcherFunc) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	return f.Fn(ctx)
}
