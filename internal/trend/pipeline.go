package trend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"trend-radar/internal/ai"
	"trend-radar/internal/extract"
	"trend-radar/internal/metrics"
	"trend-radar/internal/model"
	"trend-radar/internal/source"
)

// Mode selects how a pipeline run schedules its fetches.
type Mode string

const (
	// ModeParallelEnumerable fans out to every enumerable source at once.
	ModeParallelEnumerable Mode = "parallel-enumerable"
	// ModeSequentialDiscovered discovers URLs for a topic and scrapes them one by one.
	ModeSequentialDiscovered Mode = "sequential-discovered"
)

// Result source tags besides SourceFallback.
const (
	SourceAggregate = "aggregate"
	SourceOpenAI    = "openai"
	SourceScrape    = source.OutcomeScrape
)

var (
	// ErrNoDiscoverableURLs means URL discovery produced nothing for a topic.
	ErrNoDiscoverableURLs = errors.New("no results for query")
	// ErrUnknownMode is returned by Run for an unsupported mode.
	ErrUnknownMode = errors.New("trend: unknown mode")
)

// PageFetcher scrapes and extracts one discovered URL.
type PageFetcher interface {
	FetchURL(ctx context.Context, topic, url string) source.PageResult
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID        string
	Mode         Mode
	Source       string
	Trends       []model.RichTrend
	Generated    time.Time
	ErrorMessage string
	// Failures lists the sources that contributed nothing because they failed.
	Failures []*source.UnavailableError
	// Pages holds per-URL outcomes in processing order.
	Pages []source.PageResult
}

// Progress is a cumulative snapshot published after each discovered URL.
type Progress struct {
	Step    int               `json:"step"`
	Total   int               `json:"total"`
	URL     string            `json:"url"`
	Outcome string            `json:"outcome"`
	Trends  []model.RichTrend `json:"trends"`
}

// RunRequest parameterizes Run.
type RunRequest struct {
	Mode       Mode
	Topic      string
	Count      int
	Profile    *model.CompanyProfile
	OnProgress func(Progress)
}

// Options wires a Pipeline. Nil collaborators disable the flows that need them.
type Options struct {
	Fetchers      []source.Fetcher
	SourceTimeout time.Duration
	URLFinder     source.URLFinder
	Pages         PageFetcher
	Completer     ai.Completer
	Ranker        *Ranker
	Cache         BatchCache
	CacheTTL      time.Duration
	Seeds         *Seeds
	MaxResults    int
	DefaultURLs   int
	Now           func() time.Time
}

// Pipeline orchestrates fetch, extract, merge, rank and fallback.
type Pipeline struct {
	opts Options
}

func NewPipeline(opts Options) *Pipeline {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 5 * time.Second
	}
	if opts.Ranker == nil {
		opts.Ranker = NewRanker(DefaultRelevancePolicy())
	}
	if opts.Seeds == nil {
		opts.Seeds = MustDefaultSeeds()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultLimit
	}
	if opts.DefaultURLs <= 0 {
		opts.DefaultURLs = 3
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{opts: opts}
}

// Run dispatches on req.Mode.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (Result, error) {
	switch req.Mode {
	case ModeParallelEnumerable:
		return p.Aggregate(ctx, req.Profile)
	case ModeSequentialDiscovered:
		urls, err := p.Discover(ctx, req.Topic, req.Count)
		if err != nil {
			return Result{RunID: uuid.NewString(), Mode: req.Mode, Trends: []model.RichTrend{}}, err
		}
		return p.ScrapeDiscovered(ctx, req.Topic, urls, req.Profile, req.OnProgress)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
}

// Aggregate runs every enumerable fetcher concurrently, merges what came back
// and falls back to seed data when nothing did.
func (p *Pipeline) Aggregate(ctx context.Context, profile *model.CompanyProfile) (Result, error) {
	res := Result{RunID: uuid.NewString(), Mode: ModeParallelEnumerable, Source: SourceAggregate}
	start := time.Now()

	results := make([]source.Result, len(p.opts.Fetchers))
	var g errgroup.Group
	for i, f := range p.opts.Fetchers {
		g.Go(func() error {
			results[i] = source.Guard(ctx, f, p.opts.SourceTimeout)
			return nil
		})
	}
	_ = g.Wait()

	var cands []model.RawTrendCandidate
	for _, r := range results {
		if r.Err != nil {
			res.Failures = append(res.Failures, r.Err)
		}
		cands = append(cands, r.Candidates...)
	}
	if len(cands) == 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		slog.Warn("pipeline: all sources empty, serving seeds", "run", res.RunID, "failures", len(res.Failures))
		metrics.RecordFallback(string(ModeParallelEnumerable))
		cands = p.opts.Seeds.Candidates(p.opts.Now())
		res.Source = SourceFallback
	}

	m := NewMerger()
	m.AddAll(cands)
	res.Trends = p.opts.Ranker.Rank(m.Trends(), profile, p.opts.MaxResults)
	res.Generated = p.opts.Now()
	slog.Info("pipeline: aggregate done", "run", res.RunID, "source", res.Source,
		"candidates", len(cands), "trends", len(res.Trends), "failures", len(res.Failures), "elapsed", time.Since(start))
	return res, nil
}

// Discover asks the URL finder for up to count URLs covering topic.
// An empty answer or a finder failure is ErrNoDiscoverableURLs.
func (p *Pipeline) Discover(ctx context.Context, topic string, count int) ([]string, error) {
	if p.opts.URLFinder == nil {
		return nil, fmt.Errorf("%w: url discovery not configured", ErrNoDiscoverableURLs)
	}
	count = source.ClampCount(count, p.opts.DefaultURLs)
	urls, err := p.opts.URLFinder.FindURLs(ctx, topic, count)
	if err != nil {
		slog.Warn("pipeline: url discovery failed", "topic", topic, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrNoDiscoverableURLs, err)
	}
	if len(urls) == 0 {
		return nil, ErrNoDiscoverableURLs
	}
	if len(urls) > count {
		urls = urls[:count]
	}
	slog.Info("pipeline: discovered urls", "topic", topic, "count", len(urls))
	return urls, nil
}

// ScrapeDiscovered processes urls strictly in order. After each URL the
// cumulative ranked result is passed to onProgress before the next URL starts.
// A failing URL contributes nothing; there is no seed fallback. On
// cancellation the trends merged so far are returned with the context error.
func (p *Pipeline) ScrapeDiscovered(ctx context.Context, topic string, urls []string, profile *model.CompanyProfile, onProgress func(Progress)) (Result, error) {
	res := Result{RunID: uuid.NewString(), Mode: ModeSequentialDiscovered, Source: SourceScrape, Trends: []model.RichTrend{}}
	if len(urls) == 0 {
		return res, ErrNoDiscoverableURLs
	}
	if p.opts.Pages == nil {
		return res, errors.New("trend: page fetcher not configured")
	}
	m := NewMerger()
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			res.Generated = p.opts.Now()
			return res, err
		}
		page := p.opts.Pages.FetchURL(ctx, topic, u)
		res.Pages = append(res.Pages, page)
		m.AddAllRich(page.Trends)
		res.Trends = p.opts.Ranker.Rank(m.Trends(), profile, p.opts.MaxResults)
		slog.Info("pipeline: url processed", "run", res.RunID, "step", i+1, "url", u, "outcome", page.Outcome, "found", len(page.Trends))
		if onProgress != nil {
			onProgress(Progress{Step: i + 1, Total: len(urls), URL: u, Outcome: page.Outcome, Trends: res.Trends})
		}
	}
	res.Generated = p.opts.Now()
	return res, nil
}

// ScrapeURL processes a single URL; the result source is the page outcome.
func (p *Pipeline) ScrapeURL(ctx context.Context, topic, pageURL string, profile *model.CompanyProfile) Result {
	res := Result{RunID: uuid.NewString(), Mode: ModeSequentialDiscovered, Trends: []model.RichTrend{}}
	if p.opts.Pages == nil {
		res.Source = source.OutcomeURLError
		res.ErrorMessage = "page fetcher not configured"
		return res
	}
	page := p.opts.Pages.FetchURL(ctx, topic, pageURL)
	res.Pages = []source.PageResult{page}
	res.Source = page.Outcome
	if page.Err != nil {
		res.ErrorMessage = page.Err.Error()
	}
	m := NewMerger()
	m.AddAllRich(page.Trends)
	res.Trends = p.opts.Ranker.Rank(m.Trends(), profile, p.opts.MaxResults)
	res.Generated = p.opts.Now()
	return res
}

const generatePrompt = `Identify the %d most important emerging technology trends for marketing technology teams right now.%s
Return a JSON object {"trends": [...]} where each trend has:
technology, description, category, popularity (0-100), growthRate (0-100),
whyUseIt (list of benefit statements),
companyAdoptions (list of {name, description, useCase, impact}),
stackRecommendations ({current, recommended, benefits, migrationComplexity: Low|Medium|High, estimatedTimeframe}).`

// Generate produces trends with the completer, serving a fresh cache slot when
// caching is enabled. Any failure falls back to seed data with an error message.
func (p *Pipeline) Generate(ctx context.Context, profile *model.CompanyProfile) Result {
	now := p.opts.Now()
	res := Result{RunID: uuid.NewString(), Source: SourceOpenAI}

	if p.opts.Cache != nil && p.opts.CacheTTL > 0 {
		state, ok, err := p.opts.Cache.Load(ctx)
		if err != nil {
			slog.Warn("pipeline: cache load failed", "err", err)
		} else if ok && state.Fresh(now, p.opts.CacheTTL) {
			slog.Debug("pipeline: serving cached batch", "written_at", state.WrittenAt)
			res.Trends = p.opts.Ranker.Rank(state.Value, profile, p.opts.MaxResults)
			res.Generated = state.WrittenAt
			return res
		}
	}

	trends, err := p.complete(ctx, profile, now)
	if err != nil {
		slog.Warn("pipeline: generate failed, serving seeds", "run", res.RunID, "err", err)
		metrics.RecordFallback("generate")
		res.Source = SourceFallback
		res.ErrorMessage = err.Error()
		res.Trends = p.opts.Ranker.Rank(p.opts.Seeds.Rich(now), profile, p.opts.MaxResults)
		res.Generated = now
		return res
	}

	if p.opts.Cache != nil && p.opts.CacheTTL > 0 {
		if err := p.opts.Cache.Store(ctx, CacheState{Value: trends, WrittenAt: now}); err != nil {
			slog.Warn("pipeline: cache store failed", "err", err)
		}
	}
	res.Trends = p.opts.Ranker.Rank(trends, profile, p.opts.MaxResults)
	res.Generated = now
	slog.Info("pipeline: generate done", "run", res.RunID, "trends", len(res.Trends))
	return res
}

func (p *Pipeline) complete(ctx context.Context, profile *model.CompanyProfile, now time.Time) ([]model.RichTrend, error) {
	if p.opts.Completer == nil {
		return nil, errors.New("no completion provider configured")
	}
	text, err := p.opts.Completer.Complete(ctx, fmt.Sprintf(generatePrompt, p.opts.MaxResults, profileContext(profile)), true)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	parsed, err := extract.RichTrends(text, SourceOpenAI, "", now)
	if err != nil {
		var xe *extract.Error
		if errors.As(err, &xe) {
			metrics.RecordExtractionFailure(xe.Stage)
			slog.Warn("pipeline: unparseable completion", "stage", xe.Stage, "raw", extract.Truncate(xe.Raw, 500))
		}
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.New("completion returned no trends")
	}
	m := NewMerger()
	m.AddAllRich(parsed)
	return m.Trends(), nil
}

func profileContext(p *model.CompanyProfile) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nTailor the list to this company:")
	if p.Industry != "" {
		fmt.Fprintf(&b, "\n- industry: %s", p.Industry)
	}
	if len(p.InnovationPriorities) > 0 {
		fmt.Fprintf(&b, "\n- innovation priorities: %s", strings.Join(p.InnovationPriorities, ", "))
	}
	if len(p.BusinessChallenges) > 0 {
		fmt.Fprintf(&b, "\n- business challenges: %s", strings.Join(p.BusinessChallenges, ", "))
	}
	if len(p.TeamExpertise) > 0 {
		fmt.Fprintf(&b, "\n- team expertise: %s", strings.Join(p.TeamExpertise, ", "))
	}
	if p.Budget != "" {
		fmt.Fprintf(&b, "\n- budget: %s", p.Budget)
	}
	if p.Timeline != "" {
		fmt.Fprintf(&b, "\n- timeline: %s", p.Timeline)
	}
	return b.String()
}
