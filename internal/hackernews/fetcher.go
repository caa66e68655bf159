package hackernews

import (
	"context"
	"math"
	"strings"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/source"
	"trend-radar/internal/textclean"
)

// DefaultKeywords keep the firebase firehose on technology topics.
var DefaultKeywords = source.Keywords{
	"ai", "llm", "gpt", "rust", "go ", "golang", "typescript", "javascript", "react",
	"next.js", "kubernetes", "wasm", "webassembly", "database", "postgres", "open source",
	"framework", "api", "cloud", "serverless", "edge", "compiler", "browser",
}

// Fetcher turns stories from one HN list into trend candidates.
type Fetcher struct {
	Client   *Client
	List     string
	Limit    int
	Keywords source.Keywords
	Now      func() time.Time
}

func (f *Fetcher) Name() string { return "hackernews" }

func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 60
	}
	stories, err := f.Client.Stories(ctx, f.List, limit)
	if err != nil {
		return nil, err
	}
	kw := f.Keywords
	if kw == nil {
		kw = DefaultKeywords
	}
	now := time.Now().UTC()
	if f.Now != nil {
		now = f.Now()
	}
	out := make([]model.RawTrendCandidate, 0, len(stories))
	for _, s := range stories {
		// pad so "go " also matches a trailing "Go"
		if !kw.Allow(s.Title + " ") {
			continue
		}
		out = append(out, toCandidate(s, now))
	}
	return out, nil
}

func toCandidate(s Story, now time.Time) model.RawTrendCandidate {
	desc := s.Text
	if desc == "" {
		desc = "Discussed on Hacker News"
	}
	return model.RawTrendCandidate{
		Title:       cleanTitle(s.Title),
		Description: textclean.Summary(desc, 280),
		SourceName:  "hackernews",
		ObservedAt:  now,
		URL:         s.URL,
		Metrics: model.Metrics{
			Popularity: model.Float(Popularity(s.Points)),
			GrowthRate: model.Float(GrowthRate(s.Points, s.CreatedAt, now)),
		},
		Category: "Developer News",
	}
}

// Popularity maps story points onto the 0-100 scale: 500 points saturates.
func Popularity(points int) float64 {
	if points <= 0 {
		return 0
	}
	return float64(points) / 5
}

// GrowthRate is points per hour of age, where 50 points/hour saturates.
func GrowthRate(points int, created, now time.Time) float64 {
	if points <= 0 {
		return 0
	}
	hours := now.Sub(created).Hours()
	if hours < 1 {
		hours = 1
	}
	v := float64(points) / hours * 2
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func cleanTitle(t string) string {
	for _, p := range []string{"Show HN:", "Ask HN:", "Launch HN:"} {
		if len(t) >= len(p) && strings.EqualFold(t[:len(p)], p) {
			return strings.TrimSpace(t[len(p):])
		}
	}
	return strings.TrimSpace(t)
}
