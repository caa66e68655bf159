package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"trend-radar/internal/model"
	"trend-radar/internal/source"
	"trend-radar/internal/trend"
)

const (
	sourceOpenAI    = "openai"
	sourceAggregate = "aggregate"
	sourceScrape    = "scrape"

	stepFindURLs       = "findUrls"
	stepScrapeAndParse = "scrapeAndParse"
	stepStream         = "stream"

	streamLineURLs     = "urls"
	streamLineProgress = "progress"
	streamLineDone     = "done"
)

const ndjsonContentType = "application/x-ndjson"

type trendsQuery struct {
	Source    string `query:"source" validate:"omitempty,oneof=openai aggregate scrape"`
	Step      string `query:"step" validate:"omitempty,oneof=findUrls scrapeAndParse stream"`
	Query     string `query:"query" validate:"omitempty,max=200"`
	URL       string `query:"url" validate:"omitempty,url"`
	Count     string `query:"count" validate:"omitempty,number"`
	ProfileID string `query:"profileId" validate:"omitempty,max=128"`
}

// trendsData covers the openai, aggregate and scrapeAndParse payloads.
type trendsData struct {
	Trends       []model.RichTrend `json:"trends"`
	Source       string            `json:"source"`
	Generated    *time.Time        `json:"generated,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

type urlsData struct {
	URLs []string `json:"urls"`
}

type streamLine struct {
	Type    string            `json:"type"`
	Success *bool             `json:"success,omitempty"`
	URLs    []string          `json:"urls,omitempty"`
	Step    int               `json:"step,omitempty"`
	Total   int               `json:"total,omitempty"`
	URL     string            `json:"url,omitempty"`
	Outcome string            `json:"outcome,omitempty"`
	Source  string            `json:"source,omitempty"`
	Trends  []model.RichTrend `json:"trends,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (s *Server) getTrends(c echo.Context) error {
	var q trendsQuery
	if err := c.Bind(&q); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return badRequest(c, validationMessage(err))
	}
	q.Query = strings.TrimSpace(q.Query)
	count := 0
	if q.Count != "" {
		n, err := strconv.Atoi(q.Count)
		if err != nil {
			return badRequest(c, "count must be a number")
		}
		// Out-of-range counts are clamped by discovery.
		count = n
	}

	switch q.Source {
	case "", sourceOpenAI:
		return s.generate(c, q)
	case sourceAggregate:
		return s.aggregate(c, q)
	case sourceScrape:
		return s.scrape(c, q, count)
	}
	return badRequest(c, "unknown source")
}

func (s *Server) scrape(c echo.Context, q trendsQuery, count int) error {
	switch q.Step {
	case "":
		return badRequest(c, "scrape requires step=findUrls, scrapeAndParse or stream")
	case stepFindURLs:
		if q.Query == "" {
			return badRequest(c, "findUrls requires query")
		}
		return s.findURLs(c, q.Query, count)
	case stepScrapeAndParse:
		if q.Query == "" || q.URL == "" {
			return badRequest(c, "scrapeAndParse requires query and url")
		}
		return s.scrapeAndParse(c, q)
	case stepStream:
		if q.Query == "" {
			return badRequest(c, "stream requires query")
		}
		return s.stream(c, q, count)
	}
	return badRequest(c, "unknown step")
}

func (s *Server) generate(c echo.Context, q trendsQuery) error {
	ctx := c.Request().Context()
	res := s.pipeline.Generate(ctx, s.lookupProfile(c, q.ProfileID))
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toTrendsData(res)})
}

func (s *Server) aggregate(c echo.Context, q trendsQuery) error {
	ctx := c.Request().Context()
	res, err := s.pipeline.Aggregate(ctx, s.lookupProfile(c, q.ProfileID))
	if err != nil {
		// Only a cancelled request ends up here.
		return c.JSON(http.StatusOK, envelope{Success: false, Data: toTrendsData(res), Error: err.Error()})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: toTrendsData(res)})
}

func (s *Server) findURLs(c echo.Context, topic string, count int) error {
	urls, err := s.pipeline.Discover(c.Request().Context(), topic, count)
	if err != nil {
		if !errors.Is(err, trend.ErrNoDiscoverableURLs) {
			slog.Warn("api: discover failed", "topic", topic, "err", err)
		}
		return c.JSON(http.StatusOK, envelope{Success: false, Data: urlsData{URLs: []string{}}, Error: trend.ErrNoDiscoverableURLs.Error()})
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: urlsData{URLs: urls}})
}

func (s *Server) scrapeAndParse(c echo.Context, q trendsQuery) error {
	ctx := c.Request().Context()
	res := s.pipeline.ScrapeURL(ctx, q.Query, q.URL, s.lookupProfile(c, q.ProfileID))
	return c.JSON(http.StatusOK, envelope{Success: res.Source == source.OutcomeScrape, Data: toTrendsData(res)})
}

// stream discovers URLs and writes one NDJSON line per processed URL, in
// order, ending with a done line carrying the cumulative result.
func (s *Server) stream(c echo.Context, q trendsQuery, count int) error {
	ctx := c.Request().Context()
	profile := s.lookupProfile(c, q.ProfileID)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, ndjsonContentType)
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(resp)
	write := func(line streamLine) {
		if err := enc.Encode(line); err != nil {
			slog.Debug("api: stream write failed", "err", err)
			return
		}
		resp.Flush()
	}
	ok := func(v bool) *bool { return &v }

	urls, err := s.pipeline.Discover(ctx, q.Query, count)
	if err != nil {
		write(streamLine{Type: streamLineDone, Success: ok(false), Error: trend.ErrNoDiscoverableURLs.Error()})
		return nil
	}
	write(streamLine{Type: streamLineURLs, URLs: urls})

	res, err := s.pipeline.ScrapeDiscovered(ctx, q.Query, urls, profile, func(p trend.Progress) {
		write(streamLine{Type: streamLineProgress, Step: p.Step, Total: p.Total, URL: p.URL, Outcome: p.Outcome, Trends: p.Trends})
	})
	done := streamLine{Type: streamLineDone, Success: ok(err == nil), Source: res.Source, Trends: res.Trends}
	if err != nil {
		done.Error = err.Error()
	}
	write(done)
	return nil
}

func toTrendsData(res trend.Result) trendsData {
	d := trendsData{Trends: res.Trends, Source: res.Source, ErrorMessage: res.ErrorMessage}
	if d.Trends == nil {
		d.Trends = []model.RichTrend{}
	}
	if !res.Generated.IsZero() {
		g := res.Generated
		d.Generated = &g
	}
	return d
}

// lookupProfile resolves profileId. A missing or failing lookup ranks
// without a profile rather than failing the request.
func (s *Server) lookupProfile(c echo.Context, id string) *model.CompanyProfile {
	id = strings.TrimSpace(id)
	if id == "" || s.profiles == nil {
		return nil
	}
	p, err := s.profiles.Get(c.Request().Context(), id)
	if err != nil {
		slog.Warn("api: profile lookup failed, ranking without profile", "profile", id, "err", err)
		return nil
	}
	return p
}
