package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds redis connection settings. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig points at the company profile store. An empty DSN disables it.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RetryConfig mirrors ai.RetryPolicy in config form.
type RetryConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	BaseDelay         string  `mapstructure:"base_delay"`
	MaxDelay          string  `mapstructure:"max_delay"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

// LLMConfig selects and configures the text completion provider.
type LLMConfig struct {
	Provider     string      `mapstructure:"provider"` // openai or gemini
	Model        string      `mapstructure:"model"`
	OpenAIAPIKey string      `mapstructure:"openai_api_key"`
	GeminiAPIKey string      `mapstructure:"gemini_api_key"`
	BaseURL      string      `mapstructure:"base_url"`
	Timeout      string      `mapstructure:"timeout"`
	Retry        RetryConfig `mapstructure:"retry"`
}

// CloudflareConfig enables the Browser Rendering markdown proxy.
type CloudflareConfig struct {
	AccountID string `mapstructure:"account_id"`
	APIToken  string `mapstructure:"api_token"`
}

// HNConfig controls the Hacker News source.
type HNConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BaseAPI  string   `mapstructure:"base_api"`
	List     string   `mapstructure:"list"`
	Limit    int      `mapstructure:"limit"`
	Keywords []string `mapstructure:"keywords"`
}

// GitHubConfig controls the GitHub repository search source.
type GitHubConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Token      string `mapstructure:"token"`
	Language   string `mapstructure:"language"`
	WindowDays int    `mapstructure:"window_days"`
	MinStars   int    `mapstructure:"min_stars"`
	Limit      int    `mapstructure:"limit"`
}

// StackExchangeConfig controls the Q&A tags source.
type StackExchangeConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BaseAPI  string   `mapstructure:"base_api"`
	Site     string   `mapstructure:"site"`
	Key      string   `mapstructure:"key"`
	Limit    int      `mapstructure:"limit"`
	Keywords []string `mapstructure:"keywords"`
}

// FeedsConfig controls the RSS/Atom blog source.
type FeedsConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	URLs         []string `mapstructure:"urls"`
	LimitPerFeed int      `mapstructure:"limit_per_feed"`
	Keywords     []string `mapstructure:"keywords"`
}

// V2EXConfig controls the V2EX community source.
type V2EXConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BaseURL  string   `mapstructure:"base_url"`
	Token    string   `mapstructure:"token"`
	Nodes    []string `mapstructure:"nodes"`
	Limit    int      `mapstructure:"limit"`
	Keywords []string `mapstructure:"keywords"`
}

// DataSources groups available enumerating sources.
type DataSources struct {
	HN            HNConfig            `mapstructure:"hackernews"`
	GitHub        GitHubConfig        `mapstructure:"github"`
	StackExchange StackExchangeConfig `mapstructure:"stackexchange"`
	Feeds         FeedsConfig         `mapstructure:"feeds"`
	V2EX          V2EXConfig          `mapstructure:"v2ex"`
}

// PipelineConfig holds the orchestrator's policy knobs.
type PipelineConfig struct {
	SourceTimeout string   `mapstructure:"source_timeout"` // enumerable API calls
	ScrapeTimeout string   `mapstructure:"scrape_timeout"` // scrape + extraction per URL
	MaxResults    int      `mapstructure:"max_results"`
	CacheTTL      string   `mapstructure:"cache_ttl"`   // "0s" disables the batch cache
	ScrapeRate    float64  `mapstructure:"scrape_rate"` // scrape calls per second, 0 = unlimited
	DefaultURLs   int      `mapstructure:"default_urls"`
	SeedFile      string   `mapstructure:"seed_file"`
	MaxPageRunes  int      `mapstructure:"max_page_runes"`
	BlogURLs      []string `mapstructure:"blog_urls"` // used for discovery when no completer is configured
}

// RankingConfig overrides relevance weights. Zero values keep the defaults.
type RankingConfig struct {
	PriorityTechnology   float64 `mapstructure:"priority_technology"`
	PriorityDescription  float64 `mapstructure:"priority_description"`
	ChallengeDescription float64 `mapstructure:"challenge_description"`
	ChallengeBenefit     float64 `mapstructure:"challenge_benefit"`
	Expertise            float64 `mapstructure:"expertise"`

	// Budget and Timeline map normalized tier names (very_low, short_term) to score adjustments.
	Budget   map[string]float64 `mapstructure:"budget"`
	Timeline map[string]float64 `mapstructure:"timeline"`
}

// RefreshConfig controls the background cache refresher.
type RefreshConfig struct {
	Interval string `mapstructure:"interval"` // empty disables
}

// ReportConfig controls the periodic markdown digest writer.
type ReportConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Source     string `mapstructure:"source"`    // history source: aggregate or openai
	Frequency  string `mapstructure:"frequency"` // daily or weekly
	TopN       int    `mapstructure:"top_n"`
	MinItems   int    `mapstructure:"min_items"`
	OutputDir  string `mapstructure:"output_dir"`
	Interval   string `mapstructure:"interval"`
	Title      string `mapstructure:"title"`
	Preface    string `mapstructure:"preface"`
	Postscript string `mapstructure:"postscript"`
}

// Config is the top-level configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Sources    DataSources      `mapstructure:"sources"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Report     ReportConfig     `mapstructure:"report"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.Model = "gemini-2.5-flash-lite"
		default:
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "60s"
	}
	if c.LLM.Retry.MaxAttempts == 0 {
		c.LLM.Retry.MaxAttempts = 3
	}
	if c.LLM.Retry.BaseDelay == "" {
		c.LLM.Retry.BaseDelay = "1s"
	}
	if c.LLM.Retry.MaxDelay == "" {
		c.LLM.Retry.MaxDelay = "30s"
	}
	if c.LLM.Retry.BackoffMultiplier == 0 {
		c.LLM.Retry.BackoffMultiplier = 2
	}
	if c.Sources.HN.BaseAPI == "" {
		c.Sources.HN.BaseAPI = "https://hacker-news.firebaseio.com/v0"
	}
	if c.Sources.HN.List == "" {
		c.Sources.HN.List = "top"
	}
	if c.Sources.HN.Limit == 0 {
		c.Sources.HN.Limit = 60
	}
	if c.Sources.GitHub.WindowDays == 0 {
		c.Sources.GitHub.WindowDays = 30
	}
	if c.Sources.GitHub.MinStars == 0 {
		c.Sources.GitHub.MinStars = 100
	}
	if c.Sources.GitHub.Limit == 0 {
		c.Sources.GitHub.Limit = 20
	}
	if c.Sources.StackExchange.BaseAPI == "" {
		c.Sources.StackExchange.BaseAPI = "https://api.stackexchange.com/2.3"
	}
	if c.Sources.StackExchange.Site == "" {
		c.Sources.StackExchange.Site = "stackoverflow"
	}
	if c.Sources.StackExchange.Limit == 0 {
		c.Sources.StackExchange.Limit = 30
	}
	if c.Sources.Feeds.LimitPerFeed == 0 {
		c.Sources.Feeds.LimitPerFeed = 15
	}
	if c.Sources.V2EX.BaseURL == "" {
		c.Sources.V2EX.BaseURL = "https://www.v2ex.com"
	}
	if len(c.Sources.V2EX.Nodes) == 0 {
		c.Sources.V2EX.Nodes = []string{"programmer", "create"}
	}
	if c.Sources.V2EX.Limit == 0 {
		c.Sources.V2EX.Limit = 30
	}
	if c.Pipeline.SourceTimeout == "" {
		c.Pipeline.SourceTimeout = "5s"
	}
	if c.Pipeline.ScrapeTimeout == "" {
		c.Pipeline.ScrapeTimeout = "20s"
	}
	if c.Pipeline.MaxResults == 0 {
		c.Pipeline.MaxResults = 20
	}
	if c.Pipeline.CacheTTL == "" {
		c.Pipeline.CacheTTL = "0s"
	}
	if c.Pipeline.DefaultURLs == 0 {
		c.Pipeline.DefaultURLs = 3
	}
	if c.Pipeline.MaxPageRunes == 0 {
		c.Pipeline.MaxPageRunes = 8000
	}
	if c.Report.Source == "" {
		c.Report.Source = "aggregate"
	}
	if c.Report.Frequency == "" {
		c.Report.Frequency = "daily"
	}
	c.Report.Frequency = strings.ToLower(strings.TrimSpace(c.Report.Frequency))
	if c.Report.TopN == 0 {
		c.Report.TopN = 10
	}
	if c.Report.MinItems == 0 {
		c.Report.MinItems = 3
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "out"
	}
	if c.Report.Interval == "" {
		c.Report.Interval = "30m"
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider))
	}
	durations := map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"llm.timeout":             c.LLM.Timeout,
		"llm.retry.base_delay":    c.LLM.Retry.BaseDelay,
		"llm.retry.max_delay":     c.LLM.Retry.MaxDelay,
		"pipeline.source_timeout": c.Pipeline.SourceTimeout,
		"pipeline.scrape_timeout": c.Pipeline.ScrapeTimeout,
		"pipeline.cache_ttl":      c.Pipeline.CacheTTL,
		"report.interval":         c.Report.Interval,
	}
	for key, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", key))
		}
	}
	if strings.TrimSpace(c.Refresh.Interval) != "" {
		if _, err := time.ParseDuration(c.Refresh.Interval); err != nil {
			errs = append(errs, fmt.Errorf("refresh.interval: %w", err))
		}
	}
	if c.Pipeline.DefaultURLs < 1 || c.Pipeline.DefaultURLs > 5 {
		errs = append(errs, fmt.Errorf("pipeline.default_urls must be within 1..5, got %d", c.Pipeline.DefaultURLs))
	}
	if c.Pipeline.MaxResults < 1 {
		errs = append(errs, errors.New("pipeline.max_results must be positive"))
	}
	switch c.Report.Frequency {
	case "daily", "weekly":
	default:
		errs = append(errs, fmt.Errorf("report.frequency must be daily or weekly, got %q", c.Report.Frequency))
	}
	if c.Pipeline.ScrapeRate < 0 {
		errs = append(errs, errors.New("pipeline.scrape_rate must not be negative"))
	}
	return errors.Join(errs...)
}

// Duration parses a duration string already checked by Validate, falling back to def.
func Duration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return d
}
