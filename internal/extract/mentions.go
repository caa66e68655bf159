package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trend-radar/internal/ai"
	"trend-radar/internal/metrics"
	"trend-radar/internal/model"
)

// DefaultMaxPageRunes bounds the page text sent to the completer.
const DefaultMaxPageRunes = 8000

// Extractor delegates qualitative trend extraction from free-form markdown
// to a completer and re-applies the JSON extraction steps to its answer.
type Extractor struct {
	Completer    ai.Completer
	MaxPageRunes int
	Now          func() time.Time
}

const mentionsPrompt = `Extract the technology trends discussed in the page below.
Topic: %s
Page URL: %s

Return a JSON object {"trends": [...]} where each trend has:
technology, description, category, popularity (0-100), growthRate (0-100),
whyUseIt (list of short benefit statements),
companyAdoptions (list of {name, description, useCase, impact}).
Only include technologies the page actually mentions. Return {"trends": []} if none.

PAGE:
%s`

// TrendMentions returns the trends the completer finds in markdown.
// Failures are returned as *Error.
func (x *Extractor) TrendMentions(ctx context.Context, topic, pageURL, markdown string) ([]model.RichTrend, error) {
	if x == nil || x.Completer == nil {
		return nil, &Error{Stage: StagePrompt, Err: errors.New("no completer configured")}
	}
	body := Truncate(strings.TrimSpace(markdown), x.maxRunes())
	if body == "" {
		return nil, &Error{Stage: StagePrompt, Err: errors.New("empty page content")}
	}
	text, err := x.Completer.Complete(ctx, fmt.Sprintf(mentionsPrompt, topic, pageURL, body), true)
	if err != nil {
		metrics.RecordExtractionFailure(StagePrompt)
		return nil, &Error{Stage: StagePrompt, Err: err}
	}
	trends, err := RichTrends(text, "scrape", pageURL, x.now())
	if err != nil {
		var xe *Error
		if errors.As(err, &xe) {
			metrics.RecordExtractionFailure(xe.Stage)
		}
		slog.Warn("extract: trend mentions unparseable", "url", pageURL, "err", err, "raw", Truncate(text, 500))
		return nil, err
	}
	return trends, nil
}

func (x *Extractor) maxRunes() int {
	if x.MaxPageRunes > 0 {
		return x.MaxPageRunes
	}
	return DefaultMaxPageRunes
}

func (x *Extractor) now() time.Time {
	if x.Now != nil {
		return x.Now()
	}
	return time.Now().UTC()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
