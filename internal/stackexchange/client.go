// Package stackexchange reads popular tags from a StackExchange site.
// Docs: https://api.stackexchange.com/docs/tags
package stackexchange

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/source"
)

// DefaultBaseAPI is the public v2.3 endpoint.
const DefaultBaseAPI = "https://api.stackexchange.com/2.3"

// Tag is one entry of the /tags endpoint.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type tagsResponse struct {
	Items          []Tag  `json:"items"`
	HasMore        bool   `json:"has_more"`
	QuotaRemaining int    `json:"quota_remaining"`
	ErrorID        int    `json:"error_id"`
	ErrorMessage   string `json:"error_message"`
}

// Client queries the StackExchange API.
type Client struct {
	baseAPI string
	site    string
	key     string
	http    *http.Client
}

func NewClient(baseAPI, site, key string) *Client {
	if strings.TrimSpace(baseAPI) == "" {
		baseAPI = DefaultBaseAPI
	}
	if site == "" {
		site = "stackoverflow"
	}
	return &Client{
		baseAPI: strings.TrimRight(baseAPI, "/"),
		site:    site,
		key:     key,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// PopularTags returns up to limit tags sorted by popularity.
func (c *Client) PopularTags(ctx context.Context, limit int) ([]Tag, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	q := url.Values{}
	q.Set("order", "desc")
	q.Set("sort", "popular")
	q.Set("site", c.site)
	q.Set("pagesize", strconv.Itoa(limit))
	if c.key != "" {
		q.Set("key", c.key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseAPI+"/tags?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("stackexchange: gzip: %w", err)
		}
		defer gz.Close()
		body = gz
	}
	var out tagsResponse
	decodeErr := json.NewDecoder(body).Decode(&out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &source.StatusError{Code: resp.StatusCode, Body: out.ErrorMessage}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("stackexchange: decode: %w", decodeErr)
	}
	if out.ErrorID != 0 {
		return nil, fmt.Errorf("stackexchange: error %d: %s", out.ErrorID, out.ErrorMessage)
	}
	return out.Items, nil
}

// Fetcher maps popular tags to trend candidates.
type Fetcher struct {
	Client   *Client
	Limit    int
	Keywords source.Keywords
	Now      func() time.Time
}

func (f *Fetcher) Name() string { return "stackexchange" }

func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	tags, err := f.Client.PopularTags(ctx, f.Limit)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if f.Now != nil {
		now = f.Now()
	}
	out := make([]model.RawTrendCandidate, 0, len(tags))
	for _, t := range tags {
		if !f.Keywords.Allow(t.Name) {
			continue
		}
		out = append(out, model.RawTrendCandidate{
			Title:       DisplayName(t.Name),
			Description: fmt.Sprintf("%d questions tagged [%s] on %s", t.Count, t.Name, f.Client.site),
			SourceName:  "stackexchange",
			ObservedAt:  now,
			URL:         fmt.Sprintf("https://%s.com/questions/tagged/%s", f.Client.site, url.PathEscape(t.Name)),
			Metrics: model.Metrics{
				Popularity: model.Float(Popularity(t.Count)),
				GrowthRate: model.Float(0),
			},
			Category: "Developer Q&A",
		})
	}
	return out, nil
}

// Popularity is a log scale of the question count: 10^7 questions saturates.
func Popularity(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Log10(float64(count)) / 7 * 100
}

// DisplayName turns a tag like "next.js" or "ruby-on-rails" into a title.
func DisplayName(tag string) string {
	parts := strings.Split(tag, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
