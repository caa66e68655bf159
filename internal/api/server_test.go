package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-radar/internal/model"
	"trend-radar/internal/profile"
	"trend-radar/internal/source"
	"trend-radar/internal/trend"
)

var generated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rich(tech string) model.RichTrend {
	return model.RichTrend{
		NormalizedTrend:  model.NormalizedTrend{Technology: tech, Category: "Technology", Sources: []string{"x"}, URLs: []string{}},
		WhyUseIt:         []string{},
		CompanyAdoptions: []model.CompanyAdoption{},
	}
}

type fakePipeline struct {
	generate    trend.Result
	aggregate   trend.Result
	aggErr      error
	urls        []string
	discoverErr error
	pages       map[string]trend.Result
	gotProfile  *model.CompanyProfile
	gotCount    int
	gotURL      string
}

func (f *fakePipeline) Generate(_ context.Context, p *model.CompanyProfile) trend.Result {
	f.gotProfile = p
	return f.generate
}

func (f *fakePipeline) Aggregate(_ context.Context, p *model.CompanyProfile) (trend.Result, error) {
	f.gotProfile = p
	return f.aggregate, f.aggErr
}

func (f *fakePipeline) Discover(_ context.Context, _ string, count int) ([]string, error) {
	f.gotCount = count
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	if len(f.urls) == 0 {
		return nil, trend.ErrNoDiscoverableURLs
	}
	return f.urls, nil
}

func (f *fakePipeline) ScrapeURL(_ context.Context, _ string, pageURL string, p *model.CompanyProfile) trend.Result {
	f.gotURL = pageURL
	f.gotProfile = p
	return f.pages[pageURL]
}

func (f *fakePipeline) ScrapeDiscovered(_ context.Context, _ string, urls []string, _ *model.CompanyProfile, onProgress func(trend.Progress)) (trend.Result, error) {
	var all []model.RichTrend
	for i, u := range urls {
		r := f.pages[u]
		all = append(all, r.Trends...)
		onProgress(trend.Progress{Step: i + 1, Total: len(urls), URL: u, Outcome: r.Source, Trends: append([]model.RichTrend(nil), all...)})
	}
	return trend.Result{Source: trend.SourceScrape, Trends: all}, nil
}

type fakeProfiles struct {
	mu    sync.Mutex
	byID  map[string]*model.CompanyProfile
	err   error
	saved *model.CompanyProfile
}

func (f *fakeProfiles) Get(_ context.Context, id string) (*model.CompanyProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, p *model.CompanyProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = p
	return f.err
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var r response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	}
	return rec, r
}

func TestTrends_OpenAIIsDefault(t *testing.T) {
	fp := &fakePipeline{generate: trend.Result{Source: trend.SourceOpenAI, Trends: []model.RichTrend{rich("AI Agents")}, Generated: generated}}
	s := New(fp, nil)

	for _, target := range []string{"/trends", "/trends?source=openai"} {
		rec, r := do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.True(t, r.Success)
		var d trendsData
		require.NoError(t, json.Unmarshal(r.Data, &d))
		assert.Equal(t, "openai", d.Source)
		require.Len(t, d.Trends, 1)
		assert.Equal(t, "AI Agents", d.Trends[0].Technology)
		require.NotNil(t, d.Generated)
		assert.True(t, generated.Equal(*d.Generated))
		assert.Empty(t, d.ErrorMessage)
	}
}

func TestTrends_OpenAIFallbackCarriesErrorMessage(t *testing.T) {
	fp := &fakePipeline{generate: trend.Result{Source: trend.SourceFallback, Trends: []model.RichTrend{rich("Edge Computing")}, ErrorMessage: "completion failed: rate limited"}}
	rec, r := do(t, New(fp, nil), http.MethodGet, "/trends?source=openai", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d trendsData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.Equal(t, "fallback", d.Source)
	assert.Equal(t, "completion failed: rate limited", d.ErrorMessage)
}

func TestTrends_Aggregate(t *testing.T) {
	fp := &fakePipeline{aggregate: trend.Result{Source: trend.SourceAggregate, Trends: []model.RichTrend{rich("Bun")}, Generated: generated}}
	rec, r := do(t, New(fp, nil), http.MethodGet, "/trends?source=aggregate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.Success)
	var d trendsData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.Equal(t, "aggregate", d.Source)
	assert.Equal(t, []string{"Bun"}, model.Technologies(d.Trends))
}

func TestTrends_AggregateCancelled(t *testing.T) {
	fp := &fakePipeline{aggregate: trend.Result{Source: trend.SourceAggregate}, aggErr: context.Canceled}
	rec, r := do(t, New(fp, nil), http.MethodGet, "/trends?source=aggregate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, r.Success)
	var d trendsData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.NotNil(t, d.Trends)
}

func TestTrends_InvalidCombinations(t *testing.T) {
	s := New(&fakePipeline{}, nil)
	cases := []string{
		"/trends?source=bogus",
		"/trends?source=scrape",
		"/trends?source=scrape&step=nope&query=go",
		"/trends?source=scrape&step=findUrls",
		"/trends?source=scrape&step=findUrls&query=go&count=abc",
		"/trends?source=scrape&step=findUrls&query=go&count=-2",
		"/trends?source=scrape&step=scrapeAndParse&query=go",
		"/trends?source=scrape&step=scrapeAndParse&url=https://a.example/post",
		"/trends?source=scrape&step=scrapeAndParse&query=go&url=not-a-url",
		"/trends?source=scrape&step=stream",
	}
	for _, target := range cases {
		rec, r := do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.False(t, r.Success, target)
		assert.NotEmpty(t, r.Error, target)
	}
}

func TestTrends_FindURLs(t *testing.T) {
	fp := &fakePipeline{urls: []string{"https://a.example/1", "https://b.example/2"}}
	rec, r := do(t, New(fp, nil), http.MethodGet, "/trends?source=scrape&step=findUrls&query=composable+cdp&count=9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.Success)
	assert.Equal(t, 9, fp.gotCount, "clamping is left to discovery")
	var d urlsData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.Equal(t, fp.urls, d.URLs)
}

func TestTrends_FindURLsNoResultsIsStill200(t *testing.T) {
	for _, fp := range []*fakePipeline{{}, {discoverErr: errors.New("finder down")}} {
		rec, r := do(t, New(fp, nil), http.MethodGet, "/trends?source=scrape&step=findUrls&query=nothing", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, r.Success)
		assert.Equal(t, "no results for query", r.Error)
		var d urlsData
		require.NoError(t, json.Unmarshal(r.Data, &d))
		assert.NotNil(t, d.URLs)
		assert.Empty(t, d.URLs)
	}
}

func TestTrends_ScrapeAndParse(t *testing.T) {
	fp := &fakePipeline{pages: map[string]trend.Result{
		"https://a.example/ok":   {Source: source.OutcomeScrape, Trends: []model.RichTrend{rich("Server Components")}},
		"https://a.example/slow": {Source: source.OutcomeURLTimeout, Trends: []model.RichTrend{}, ErrorMessage: "context deadline exceeded"},
	}}
	s := New(fp, nil)

	rec, r := do(t, s, http.MethodGet, "/trends?source=scrape&step=scrapeAndParse&query=react&url=https://a.example/ok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.Success)
	assert.Equal(t, "https://a.example/ok", fp.gotURL)
	var d trendsData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.Equal(t, "scrape", d.Source)
	assert.Equal(t, []string{"Server Components"}, model.Technologies(d.Trends))

	rec, r = do(t, s, http.MethodGet, "/trends?source=scrape&step=scrapeAndParse&query=react&url=https://a.example/slow", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, r.Success)
	require.NoError(t, json.Unmarshal(r.Data, &d))
	assert.Equal(t, "scrape-url-timeout", d.Source)
	assert.Empty(t, d.Trends)
}

func TestTrends_StreamPreservesURLOrder(t *testing.T) {
	fp := &fakePipeline{
		urls: []string{"https://u1.example", "https://u2.example", "https://u3.example"},
		pages: map[string]trend.Result{
			"https://u1.example": {Source: source.OutcomeScrape, Trends: []model.RichTrend{rich("Bun")}},
			"https://u2.example": {Source: source.OutcomeURLFailed},
			"https://u3.example": {Source: source.OutcomeScrape, Trends: []model.RichTrend{rich("Deno")}},
		},
	}
	rec, _ := do(t, New(fp, nil), http.MethodGet, "/trends?source=scrape&step=stream&query=js+runtimes&count=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ndjsonContentType, rec.Header().Get("Content-Type"))

	var lines []streamLine
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var l streamLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 5)
	assert.Equal(t, "urls", lines[0].Type)
	assert.Equal(t, fp.urls, lines[0].URLs)

	assert.Equal(t, "progress", lines[1].Type)
	assert.Equal(t, 1, lines[1].Step)
	assert.Equal(t, []string{"Bun"}, model.Technologies(lines[1].Trends))
	assert.Equal(t, "scrape-url-failed", lines[2].Outcome)
	assert.Equal(t, []string{"Bun", "Deno"}, model.Technologies(lines[3].Trends))

	done := lines[4]
	assert.Equal(t, "done", done.Type)
	require.NotNil(t, done.Success)
	assert.True(t, *done.Success)
	assert.Equal(t, []string{"Bun", "Deno"}, model.Technologies(done.Trends))
}

func TestTrends_StreamWithoutURLs(t *testing.T) {
	rec, _ := do(t, New(&fakePipeline{}, nil), http.MethodGet, "/trends?source=scrape&step=stream&query=nothing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var l streamLine
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	assert.Equal(t, "done", l.Type)
	require.NotNil(t, l.Success)
	assert.False(t, *l.Success)
	assert.Equal(t, "no results for query", l.Error)
}

func TestTrends_ProfileLookup(t *testing.T) {
	acme := &model.CompanyProfile{ID: "acme", Name: "Acme", InnovationPriorities: []string{"ai"}}
	fp := &fakePipeline{generate: trend.Result{Source: trend.SourceOpenAI}}
	s := New(fp, &fakeProfiles{byID: map[string]*model.CompanyProfile{"acme": acme}})

	rec, _ := do(t, s, http.MethodGet, "/trends?source=openai&profileId=acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, acme, fp.gotProfile)

	rec, _ = do(t, s, http.MethodGet, "/trends?source=openai&profileId=ghost", "")
	require.Equal(t, http.StatusOK, rec.Code, "unknown profile ranks without one")
	assert.Nil(t, fp.gotProfile)
}

func TestProfiles_GetAndPut(t *testing.T) {
	store := &fakeProfiles{byID: map[string]*model.CompanyProfile{"acme": {ID: "acme", Name: "Acme"}}}
	s := New(&fakePipeline{}, store)

	rec, r := do(t, s, http.MethodGet, "/profiles/acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, r.Success)
	var p model.CompanyProfile
	require.NoError(t, json.Unmarshal(r.Data, &p))
	assert.Equal(t, "Acme", p.Name)

	rec, _ = do(t, s, http.MethodGet, "/profiles/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"name":" Globex ","innovationPriorities":["personalization"," ",""],"budget":"very high","timeline":"immediate"}`
	rec, r = do(t, s, http.MethodPut, "/profiles/globex", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, r.Success)
	require.NotNil(t, store.saved)
	assert.Equal(t, "globex", store.saved.ID)
	assert.Equal(t, "Globex", store.saved.Name)
	assert.Equal(t, []string{"personalization"}, store.saved.InnovationPriorities)
	assert.Equal(t, "very high", store.saved.Budget)

	rec, r = do(t, s, http.MethodPut, "/profiles/globex", `{"industry":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, r.Error, "name")
}

func TestProfiles_StoreNotConfigured(t *testing.T) {
	rec, _ := do(t, New(&fakePipeline{}, nil), http.MethodGet, "/profiles/acme", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	s := New(&fakePipeline{}, nil)

	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	s.Handler().ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "go_goroutines")
}
