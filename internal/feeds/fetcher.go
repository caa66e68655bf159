// Package feeds reads technology blogs' RSS and Atom feeds.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"trend-radar/internal/model"
	"trend-radar/internal/source"
	"trend-radar/internal/textclean"
)

// Fetcher turns recent feed entries into trend candidates. A failing feed is
// skipped; only when every feed fails is an error returned.
type Fetcher struct {
	URLs         []string
	LimitPerFeed int
	Keywords     source.Keywords
	Client       *http.Client
	Now          func() time.Time
}

func (f *Fetcher) Name() string { return "feeds" }

func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	if len(f.URLs) == 0 {
		return nil, nil
	}
	limit := f.LimitPerFeed
	if limit <= 0 {
		limit = 15
	}
	now := time.Now().UTC()
	if f.Now != nil {
		now = f.Now()
	}
	fp := gofeed.NewParser()
	if f.Client != nil {
		fp.Client = f.Client
	}

	var out []model.RawTrendCandidate
	failed := 0
	var lastErr error
	for _, link := range f.URLs {
		feed, err := fp.ParseURLWithContext(link, ctx)
		if err != nil {
			failed++
			lastErr = err
			slog.Warn("feeds: parse failed", "url", link, "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		out = append(out, f.candidates(feed, limit, now)...)
	}
	if failed == len(f.URLs) {
		return nil, fmt.Errorf("feeds: all %d feeds failed: %w", failed, lastErr)
	}
	return out, nil
}

func (f *Fetcher) candidates(feed *gofeed.Feed, limit int, now time.Time) []model.RawTrendCandidate {
	site := strings.TrimSpace(feed.Title)
	if site == "" {
		site = "feed"
	}
	out := make([]model.RawTrendCandidate, 0, limit)
	for _, item := range feed.Items {
		if len(out) == limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = textclean.Summary(desc, 280)
		if title == "" || !f.Keywords.Allow(title+" "+desc) {
			continue
		}
		published := now
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}
		cat := "Industry News"
		if len(item.Categories) > 0 && strings.TrimSpace(item.Categories[0]) != "" {
			cat = strings.TrimSpace(item.Categories[0])
		}
		out = append(out, model.RawTrendCandidate{
			Title:       title,
			Description: desc,
			SourceName:  "feeds:" + site,
			ObservedAt:  published,
			URL:         item.Link,
			Metrics: model.Metrics{
				Popularity: model.Float(40),
				GrowthRate: model.Float(Recency(published, now)),
			},
			Category: cat,
		})
	}
	return out
}

// Recency scores how fresh an entry is: 100 for today, dropping by 10 a day.
func Recency(published, now time.Time) float64 {
	days := now.Sub(published).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 100 - days*10
}
