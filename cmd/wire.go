package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"trend-radar/internal/ai"
	"trend-radar/internal/config"
	"trend-radar/internal/extract"
	"trend-radar/internal/feeds"
	"trend-radar/internal/github"
	"trend-radar/internal/hackernews"
	"trend-radar/internal/model"
	"trend-radar/internal/profile"
	"trend-radar/internal/redisclient"
	"trend-radar/internal/scrape"
	"trend-radar/internal/source"
	"trend-radar/internal/stackexchange"
	"trend-radar/internal/storage"
	"trend-radar/internal/trend"
	"trend-radar/internal/v2ex"
)

// app holds the collaborators built from configuration.
type app struct {
	pipeline  *trend.Pipeline
	completer ai.Completer
	rdb       *redis.Client       // nil when redis is not configured
	store     *storage.RedisStore // nil when redis is not configured
	profiles  *profile.Store      // nil when no database is configured
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("app: close", "error", err)
		}
	}
}

// buildApp wires the pipeline. withProfiles opens the profile database.
func buildApp(ctx context.Context, cfg config.Config, withProfiles bool) (*app, error) {
	a := &app{}

	completer, err := ai.New(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	if completer == nil {
		slog.Warn("app: no llm api key configured, ai flows will serve seeds", "provider", cfg.LLM.Provider)
	}
	a.completer = completer

	if cfg.Redis.Addr != "" {
		a.rdb = redisclient.New(cfg.Redis)
		a.closers = append(a.closers, a.rdb.Close)
		if err := redisclient.Ping(ctx, a.rdb); err != nil {
			slog.Warn("app: redis unreachable, cache and history disabled", "error", err)
			a.Close()
			a.closers, a.rdb = nil, nil
		} else {
			a.store = storage.NewRedisStore(a.rdb, config.Duration(cfg.Pipeline.CacheTTL, 0))
		}
	}

	if withProfiles && cfg.Database.DSN != "" {
		ps, err := profile.Open(cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.profiles = ps
		a.closers = append(a.closers, ps.Close)
	}

	var seeds *trend.Seeds
	if cfg.Pipeline.SeedFile != "" {
		seeds, err = trend.LoadSeeds(cfg.Pipeline.SeedFile)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var cache trend.BatchCache = trend.NewMemoryCache()
	if a.store != nil {
		cache = a.store
	}

	scrapeTimeout := config.Duration(cfg.Pipeline.ScrapeTimeout, 20*time.Second)
	pages := &source.PageFetcher{
		Scraper:   scrape.Throttle(newScraper(cfg, scrapeTimeout), cfg.Pipeline.ScrapeRate),
		Extractor: &extract.Extractor{Completer: completer, MaxPageRunes: cfg.Pipeline.MaxPageRunes},
		Timeout:   scrapeTimeout,
	}

	a.pipeline = trend.NewPipeline(trend.Options{
		Fetchers:      newFetchers(cfg.Sources),
		SourceTimeout: config.Duration(cfg.Pipeline.SourceTimeout, 5*time.Second),
		URLFinder:     newURLFinder(completer, cfg.Pipeline.BlogURLs),
		Pages:         pages,
		Completer:     completer,
		Ranker:        trend.NewRanker(trend.PolicyFromConfig(cfg.Ranking)),
		Cache:         cache,
		CacheTTL:      config.Duration(cfg.Pipeline.CacheTTL, 0),
		Seeds:         seeds,
		MaxResults:    cfg.Pipeline.MaxResults,
		DefaultURLs:   cfg.Pipeline.DefaultURLs,
	})
	return a, nil
}

func newScraper(cfg config.Config, timeout time.Duration) scrape.Scraper {
	if cfg.Cloudflare.AccountID != "" && cfg.Cloudflare.APIToken != "" {
		return scrape.NewCloudflare(cfg.Cloudflare.AccountID, cfg.Cloudflare.APIToken, timeout)
	}
	slog.Info("app: cloudflare not configured, scraping pages directly")
	return scrape.NewDirect(timeout)
}

func newURLFinder(c ai.Completer, blogURLs []string) source.URLFinder {
	if c != nil {
		return &source.LLMURLFinder{Completer: c}
	}
	if len(blogURLs) > 0 {
		return source.StaticURLFinder(blogURLs)
	}
	return nil
}

func newFetchers(s config.DataSources) []source.Fetcher {
	var fs []source.Fetcher
	if s.HN.Enabled {
		fs = append(fs, &hackernews.Fetcher{
			Client:   hackernews.NewClient(s.HN.BaseAPI),
			List:     s.HN.List,
			Limit:    s.HN.Limit,
			Keywords: keywords(s.HN.Keywords),
		})
	}
	if s.GitHub.Enabled {
		fs = append(fs, github.NewFetcher(github.Options{
			Token:      s.GitHub.Token,
			Language:   s.GitHub.Language,
			WindowDays: s.GitHub.WindowDays,
			MinStars:   s.GitHub.MinStars,
			Limit:      s.GitHub.Limit,
		}))
	}
	if s.StackExchange.Enabled {
		fs = append(fs, &stackexchange.Fetcher{
			Client:   stackexchange.NewClient(s.StackExchange.BaseAPI, s.StackExchange.Site, s.StackExchange.Key),
			Limit:    s.StackExchange.Limit,
			Keywords: keywords(s.StackExchange.Keywords),
		})
	}
	if s.Feeds.Enabled && len(s.Feeds.URLs) > 0 {
		fs = append(fs, &feeds.Fetcher{
			URLs:         s.Feeds.URLs,
			LimitPerFeed: s.Feeds.LimitPerFeed,
			Keywords:     keywords(s.Feeds.Keywords),
		})
	}
	if s.V2EX.Enabled {
		fs = append(fs, &v2ex.Fetcher{
			Client:   v2ex.NewClient(s.V2EX.BaseURL, s.V2EX.Token),
			Nodes:    s.V2EX.Nodes,
			Limit:    s.V2EX.Limit,
			Keywords: keywords(s.V2EX.Keywords),
		})
	}
	return fs
}

// keywords keeps nil for an empty list so fetchers apply their defaults.
func keywords(list []string) source.Keywords {
	if len(list) == 0 {
		return nil
	}
	return source.Keywords(list)
}

// lookupProfile loads a profile by id for CLI commands.
func (a *app) lookupProfile(ctx context.Context, id string) (*model.CompanyProfile, error) {
	if id == "" {
		return nil, nil
	}
	if a.profiles == nil {
		return nil, errors.New("profile store not configured (database.dsn)")
	}
	return a.profiles.Get(ctx, id)
}
