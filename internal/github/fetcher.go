// Package github finds fast-rising repositories with the GitHub search API.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"

	"trend-radar/internal/model"
)

// Options configure the repository search.
type Options struct {
	Token      string
	Language   string
	WindowDays int
	MinStars   int
	Limit      int
	// StarsPerPoint maps stars onto the popularity scale; 0 means 50.
	StarsPerPoint float64
}

// Fetcher searches repositories created inside a recent window, sorted by stars.
type Fetcher struct {
	client *github.Client
	opts   Options
	now    func() time.Time
}

// NewFetcher builds a client, authenticated when a token is given.
func NewFetcher(opts Options) *Fetcher {
	var client *github.Client
	if opts.Token == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &Fetcher{client: client, opts: withDefaults(opts), now: func() time.Time { return time.Now().UTC() }}
}

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise.
func (f *Fetcher) WithBaseURL(raw string) (*Fetcher, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("github: base url: %w", err)
	}
	f.client.BaseURL = u
	return f, nil
}

func withDefaults(o Options) Options {
	if o.WindowDays <= 0 {
		o.WindowDays = 30
	}
	if o.MinStars < 0 {
		o.MinStars = 0
	}
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}
	if o.StarsPerPoint <= 0 {
		o.StarsPerPoint = 50
	}
	return o
}

func (f *Fetcher) Name() string { return "github" }

// Query returns the search query for the configured window.
func (f *Fetcher) Query() string {
	since := f.now().AddDate(0, 0, -f.opts.WindowDays).Format("2006-01-02")
	q := fmt.Sprintf("created:>%s stars:>%d", since, f.opts.MinStars)
	if f.opts.Language != "" {
		q = fmt.Sprintf("language:%s %s", f.opts.Language, q)
	}
	return q
}

func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: f.opts.Limit},
	}
	result, _, err := f.client.Search.Repositories(ctx, f.Query(), opts)
	if err != nil {
		return nil, fmt.Errorf("github: search: %w", err)
	}
	now := f.now()
	out := make([]model.RawTrendCandidate, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		out = append(out, f.toCandidate(repo, now))
	}
	return out, nil
}

func (f *Fetcher) toCandidate(r *github.Repository, now time.Time) model.RawTrendCandidate {
	stars := float64(r.GetStargazersCount())
	days := now.Sub(r.GetCreatedAt().Time).Hours() / 24
	if days < 1 {
		days = 1
	}
	category := r.GetLanguage()
	if category == "" {
		category = "Open Source"
	}
	desc := strings.TrimSpace(r.GetDescription())
	if desc == "" {
		desc = "Rising repository on GitHub"
	}
	return model.RawTrendCandidate{
		Title:       r.GetName(),
		Description: desc,
		SourceName:  "github",
		ObservedAt:  now,
		URL:         r.GetHTMLURL(),
		Metrics: model.Metrics{
			Popularity: model.Float(stars / f.opts.StarsPerPoint),
			// 100 stars a day saturates
			GrowthRate: model.Float(stars / days),
		},
		Category: category,
	}
}
