package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trend-radar/internal/extract"
	"trend-radar/internal/metrics"
	"trend-radar/internal/model"
	"trend-radar/internal/scrape"
)

// Outcome tags of a URL-driven fetch.
const (
	OutcomeScrape     = "scrape"
	OutcomeURLFailed  = "scrape-url-failed"
	OutcomeURLTimeout = "scrape-url-timeout"
	OutcomeURLError   = "scrape-url-error"
)

// PageResult is what one discovered URL contributed.
type PageResult struct {
	URL     string
	Trends  []model.RichTrend
	Outcome string
	Err     error
}

// PageFetcher scrapes one discovered URL and extracts trend mentions from it.
type PageFetcher struct {
	Scraper   scrape.Scraper
	Extractor *extract.Extractor
	// Timeout bounds scrape plus extraction; 0 means 20s.
	Timeout time.Duration
}

// FetchURL never fails: every problem is folded into the outcome tag and
// contributes zero trends.
func (p *PageFetcher) FetchURL(ctx context.Context, topic, pageURL string) (res PageResult) {
	res = PageResult{URL: pageURL, Outcome: OutcomeScrape, Trends: []model.RichTrend{}}
	start := time.Now()
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res.Trends = []model.RichTrend{}
			res.Outcome = OutcomeURLError
			res.Err = fmt.Errorf("panic: %v", r)
		}
		status := "ok"
		if res.Outcome != OutcomeScrape {
			status = res.Outcome
			slog.Warn("source: page fetch failed", "url", pageURL, "outcome", res.Outcome, "err", res.Err)
		}
		metrics.RecordFetch("scrape", status, time.Since(start).Seconds())
	}()

	if p.Scraper == nil {
		res.Outcome, res.Err = OutcomeURLError, errors.New("no scraper configured")
		return res
	}
	page, err := p.Scraper.Scrape(pctx, pageURL)
	if err != nil {
		res.Outcome, res.Err = classify(pctx, err), err
		return res
	}
	trends, err := p.Extractor.TrendMentions(pctx, topic, pageURL, page.Content)
	if err != nil {
		res.Err = err
		if isTimeout(pctx, err) {
			res.Outcome = OutcomeURLTimeout
		} else {
			res.Outcome = OutcomeURLError
		}
		return res
	}
	res.Trends = trends
	return res
}

func classify(ctx context.Context, err error) string {
	switch {
	case isTimeout(ctx, err):
		return OutcomeURLTimeout
	case scrape.IsFailedFetch(err):
		return OutcomeURLFailed
	default:
		return OutcomeURLError
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
