package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trend-radar/internal/ai"
	"trend-radar/internal/extract"
)

// Discovery bounds.
const (
	MinURLCount = 1
	MaxURLCount = 5
)

// URLFinder discovers candidate pages covering a topic.
type URLFinder interface {
	FindURLs(ctx context.Context, topic string, count int) ([]string, error)
}

// ClampCount bounds a requested URL count to [MinURLCount, MaxURLCount];
// def is used when n is zero or negative.
func ClampCount(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n < MinURLCount {
		return MinURLCount
	}
	if n > MaxURLCount {
		return MaxURLCount
	}
	return n
}

// LLMURLFinder asks a completer for blog posts about a topic.
type LLMURLFinder struct {
	Completer ai.Completer
}

const findURLsPrompt = `List %d recent, publicly reachable blog or news article URLs that discuss
technology trends for the topic %q. Prefer engineering blogs and industry publications.
Return a JSON object {"urls": ["https://..."]} with absolute URLs only.`

func (f *LLMURLFinder) FindURLs(ctx context.Context, topic string, count int) ([]string, error) {
	if f == nil || f.Completer == nil {
		return nil, errors.New("source: no completer configured for url discovery")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("source: empty topic")
	}
	count = ClampCount(count, 3)
	text, err := f.Completer.Complete(ctx, fmt.Sprintf(findURLsPrompt, count, topic), true)
	if err != nil {
		return nil, fmt.Errorf("source: find urls: %w", err)
	}
	return extract.URLs(text, count)
}

// StaticURLFinder returns a fixed URL list, for configured blogs and tests.
type StaticURLFinder []string

func (s StaticURLFinder) FindURLs(_ context.Context, _ string, count int) ([]string, error) {
	count = ClampCount(count, len(s))
	if len(s) < count {
		count = len(s)
	}
	return append([]string(nil), s[:count]...), nil
}
