package scrape

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled paces calls to a rate-sensitive scraper.
type Throttled struct {
	next    Scraper
	limiter *rate.Limiter
}

// Throttle wraps s so it is called at most perSecond times per second.
// perSecond <= 0 returns s unchanged.
func Throttle(s Scraper, perSecond float64) Scraper {
	if s == nil || perSecond <= 0 {
		return s
	}
	return &Throttled{next: s, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (t *Throttled) Name() string { return t.next.Name() }

func (t *Throttled) Scrape(ctx context.Context, u string) (Page, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Page{}, fmt.Errorf("scrape: throttle: %w", err)
	}
	return t.next.Scrape(ctx, u)
}
