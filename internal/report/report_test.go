package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-radar/internal/model"
)

var now = time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

func sample() []model.RichTrend {
	return []model.RichTrend{
		{
			NormalizedTrend: model.NormalizedTrend{
				Technology: "AI Agents", Description: "Autonomous assistants: planning and tool use.",
				Category: "AI", Popularity: 92, GrowthRate: 88,
				Sources: []string{"openai", "hackernews", "hackernews"}, URLs: []string{"https://example.com/agents"},
			},
			WhyUseIt:         []string{"Automates campaign ops"},
			CompanyAdoptions: []model.CompanyAdoption{{Name: "Klarna"}, {Name: ""}},
		},
		{NormalizedTrend: model.NormalizedTrend{Technology: "Bun", Category: "Runtime", Popularity: 60, GrowthRate: 70, Sources: []string{"github"}}},
	}
}

func TestBuild(t *testing.T) {
	d := Build(sample(), "aggregate", now, Options{Title: "Radar {.CurrentDate}", Frequency: "Weekly", TopN: 5})
	assert.Equal(t, "Radar 2026-02-03", d.Meta.Title)
	assert.Equal(t, "weekly-20260203", d.Meta.Slug)
	assert.Equal(t, "2026-02-03 10:30", d.Meta.Datetime)
	assert.Equal(t, []string{"AI Agents", "Bun"}, d.Meta.Technologies)
	assert.Equal(t, "Top trends: AI Agents, Bun.", d.Meta.Summary)
	require.Len(t, d.Items, 2)
	assert.Equal(t, 1, d.Items[0].Rank)
	assert.Equal(t, "openai, hackernews", d.Items[0].Sources)
	assert.Equal(t, "Klarna", d.Items[0].Adopters)
}

func TestBuild_DefaultsAndTopN(t *testing.T) {
	d := Build(sample(), "openai", now, Options{TopN: 1})
	assert.Equal(t, "Technology trends 2026-02-03", d.Meta.Title)
	assert.Equal(t, "daily-20260203", d.Meta.Slug)
	assert.Len(t, d.Items, 1)

	empty := Build(nil, "fallback", now, Options{})
	assert.Empty(t, empty.Meta.Summary)
	assert.Empty(t, empty.Items)
}

func TestRenderAndParseRoundTrip(t *testing.T) {
	d := Build(sample(), "aggregate", now, Options{Title: "Radar: weekly", Preface: "Hello.", Postscript: "Bye."})
	out, err := Render(d)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, "## 1. AI Agents")
	assert.Contains(t, out, "- Popularity: 92, growth: 88")
	assert.Contains(t, out, "- Automates campaign ops")
	assert.Contains(t, out, "- <https://example.com/agents>")
	assert.Contains(t, out, "## 2. Bun")

	doc, err := Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Radar: weekly", doc.Meta.Title)
	assert.Equal(t, "daily-20260203", doc.Meta.Slug)
	assert.Equal(t, "aggregate", doc.Meta.Source)
	assert.Equal(t, []string{"AI Agents", "Bun"}, doc.Meta.Technologies)
	assert.Contains(t, doc.Frontmatter, "datetime")
	assert.True(t, strings.HasPrefix(doc.Body, "> Top trends"), doc.Body)
	assert.Contains(t, doc.Body, "Bye.")
}

func TestWriteAndParseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Write(dir, Build(sample(), "openai", now, Options{}))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily-20260203.md"), path)

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", doc.Meta.Source)
}

func TestParseWithoutFrontmatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no_fm.md")
	body := "# Hello\n\nNo frontmatter here.\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Frontmatter)
	assert.Equal(t, body, doc.Body)
}

func TestParseInvalidFrontmatter(t *testing.T) {
	_, err := Parse(strings.NewReader("---\ntitle: [unclosed\n---\nbody\n"))
	assert.Error(t, err)
}
