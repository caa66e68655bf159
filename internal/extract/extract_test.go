package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-radar/internal/model"
)

func TestDecode_FencedBlockInsideProse(t *testing.T) {
	text := "Here are the results you asked for.\n```json\n{\"technology\": \"Bun\", \"popularity\": 42}\n```\nLet me know if you need more."
	var got struct {
		Technology string  `json:"technology"`
		Popularity float64 `json:"popularity"`
	}
	require.NoError(t, Decode(text, &got))
	assert.Equal(t, "Bun", got.Technology)
	assert.Equal(t, 42.0, got.Popularity)
}

func TestJSONSpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"object", `noise {"a":1} tail`, `{"a":1}`, true},
		{"array first", `x [1,{"a":2}] y`, `[1,{"a":2}]`, true},
		{"outermost wins", `{"a":1} and {"b":2}`, `{"a":1} and {"b":2}`, true},
		{"none", "no json here", "", false},
		{"unclosed", `{"a":1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := JSONSpan(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Failures(t *testing.T) {
	var v map[string]any
	err := Decode("nothing to see", &v)
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StageSpan, xe.Stage)
	assert.Equal(t, "nothing to see", xe.Raw)

	err = Decode(`{"a": 1,,}`, &v)
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StageDecode, xe.Stage)
}

func TestRichTrends_Coercion(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	text := "```json\n" + `{"trends": [
		{"technology": "Edge AI", "popularity": 150, "growthRate": -30, "whyUseIt": ["fast"],
		 "stackRecommendations": {"current": ["REST"], "migrationComplexity": "high"}},
		{"title": "Server Components", "popularity": "85%", "growthRate": "70", "category": "Frontend",
		 "companyAdoptions": [{"name": "Acme", "useCase": "storefront"}, {"useCase": "no name"}]},
		{"description": "missing title"}
	]}` + "\n```"

	got, err := RichTrends(text, "openai", "", now)
	require.NoError(t, err)
	require.Len(t, got, 2)

	edge := got[0]
	assert.Equal(t, "Edge AI", edge.Technology)
	assert.Equal(t, 100.0, edge.Popularity)
	assert.Equal(t, 0.0, edge.GrowthRate)
	assert.Equal(t, DefaultCategory, edge.Category)
	assert.Equal(t, []string{"fast"}, edge.WhyUseIt)
	assert.Equal(t, []model.CompanyAdoption{}, edge.CompanyAdoptions)
	assert.Equal(t, []string{"openai"}, edge.Sources)
	assert.Equal(t, now, edge.LastUpdated)
	require.NotNil(t, edge.StackRecommendations)
	assert.Equal(t, model.ComplexityHigh, edge.StackRecommendations.MigrationComplexity)
	assert.Equal(t, []string{}, edge.StackRecommendations.Benefits)

	sc := got[1]
	assert.Equal(t, "Server Components", sc.Technology)
	assert.Equal(t, 85.0, sc.Popularity)
	assert.Equal(t, 70.0, sc.GrowthRate)
	assert.Equal(t, "Frontend", sc.Category)
	assert.Equal(t, []string{}, sc.WhyUseIt)
	require.Len(t, sc.CompanyAdoptions, 1)
	assert.Equal(t, "Acme", sc.CompanyAdoptions[0].Name)
	assert.Nil(t, sc.StackRecommendations)
}

func TestRichTrends_BareArrayAndPageURL(t *testing.T) {
	got, err := RichTrends(`[{"name":"Deno","url":"https://deno.land"}]`, "scrape", "https://blog.example.com/post", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"https://deno.land", "https://blog.example.com/post"}, got[0].URLs)
}

func TestRichTrends_SchemaMismatch(t *testing.T) {
	_, err := RichTrends(`{"answer": 42}`, "openai", "", time.Time{})
	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StageSchema, xe.Stage)
}

func TestComplexity(t *testing.T) {
	assert.Equal(t, model.ComplexityLow, Complexity(" LOW "))
	assert.Equal(t, model.ComplexityHigh, Complexity("High"))
	assert.Equal(t, model.ComplexityMedium, Complexity("unknown"))
	assert.Equal(t, model.ComplexityMedium, Complexity(""))
}

func TestURLs(t *testing.T) {
	text := `Sure! {"urls": ["https://a.example.com/x", "ftp://nope", "https://a.example.com/x", "relative/path", {"url": "http://b.example.com"}, "https://c.example.com"]}`
	got, err := URLs(text, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com/x", "http://b.example.com"}, got)

	got, err = URLs(`["https://x.example.com"]`, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.example.com"}, got)
}

func TestCandidates(t *testing.T) {
	rt := model.RichTrend{NormalizedTrend: model.NormalizedTrend{
		Technology: "Bun", Popularity: 40, GrowthRate: 60, Category: "Runtime",
		Sources: []string{"scrape"}, URLs: []string{"https://bun.sh"},
	}}
	got := Candidates([]model.RichTrend{rt})
	require.Len(t, got, 1)
	assert.Equal(t, "Bun", got[0].Title)
	assert.Equal(t, "scrape", got[0].SourceName)
	assert.Equal(t, "https://bun.sh", got[0].URL)
	assert.Equal(t, 40.0, *got[0].Metrics.Popularity)
}

type fakeCompleter struct {
	out    string
	err    error
	prompt string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, wantJSON bool) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestExtractor_TrendMentions(t *testing.T) {
	fc := &fakeCompleter{out: "```json\n{\"trends\":[{\"technology\":\"htmx\",\"popularity\":55}]}\n```"}
	x := &Extractor{Completer: fc, MaxPageRunes: 10}
	got, err := x.TrendMentions(context.Background(), "frontend", "https://blog.example.com", "# A post about htmx and more words")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "htmx", got[0].Technology)
	assert.Equal(t, []string{"scrape"}, got[0].Sources)
	assert.Contains(t, fc.prompt, "# A post a")
	assert.NotContains(t, fc.prompt, "more words")
}

func TestExtractor_TrendMentionsFailures(t *testing.T) {
	var xe *Error

	_, err := (&Extractor{}).TrendMentions(context.Background(), "t", "u", "text")
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StagePrompt, xe.Stage)

	fc := &fakeCompleter{err: errors.New("rate limited")}
	_, err = (&Extractor{Completer: fc}).TrendMentions(context.Background(), "t", "u", "text")
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StagePrompt, xe.Stage)

	fc = &fakeCompleter{out: "I could not find anything."}
	_, err = (&Extractor{Completer: fc}).TrendMentions(context.Background(), "t", "u", "text")
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, StageSpan, xe.Stage)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 4))
	assert.Equal(t, "hi", Truncate("hi", 0))
}
