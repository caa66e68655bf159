// Package trend folds raw candidates into canonical trends, ranks them and
// orchestrates the ingestion pipeline.
package trend

import (
	"strings"

	"trend-radar/internal/extract"
	"trend-radar/internal/model"
)

// Key is the merge key of a title.
func Key(title string) string {
	return strings.TrimSpace(strings.ToLower(title))
}

// Clamp bounds v to [0,100].
func Clamp(v float64) float64 { return extract.Clamp(v) }

// Normalize canonicalizes one candidate. It reports false when the candidate
// has no title.
func Normalize(c model.RawTrendCandidate) (model.NormalizedTrend, bool) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return model.NormalizedTrend{}, false
	}
	n := model.NormalizedTrend{
		Technology:  title,
		Description: strings.TrimSpace(c.Description),
		Category:    strings.TrimSpace(c.Category),
		Sources:     []string{},
		URLs:        []string{},
		LastUpdated: c.ObservedAt,
	}
	if c.Metrics.Popularity != nil {
		n.Popularity = Clamp(*c.Metrics.Popularity)
	}
	if c.Metrics.GrowthRate != nil {
		n.GrowthRate = Clamp(*c.Metrics.GrowthRate)
	}
	if n.Category == "" {
		n.Category = extract.DefaultCategory
	}
	if c.SourceName != "" {
		n.Sources = append(n.Sources, c.SourceName)
	}
	if u := strings.TrimSpace(c.URL); u != "" {
		n.URLs = append(n.URLs, u)
	}
	return n, true
}

// Merge folds incoming into existing; both must share a Key. Metrics take the
// max, the timestamp the latest, provenance is appended, and description and
// category keep the first non-empty value.
func Merge(existing, incoming model.NormalizedTrend) model.NormalizedTrend {
	r := existing
	r.Popularity = max(existing.Popularity, incoming.Popularity)
	r.GrowthRate = max(existing.GrowthRate, incoming.GrowthRate)
	if incoming.LastUpdated.After(existing.LastUpdated) {
		r.LastUpdated = incoming.LastUpdated
	}
	r.Sources = append(append([]string{}, existing.Sources...), incoming.Sources...)
	r.URLs = unionStrings(existing.URLs, incoming.URLs)
	if r.Description == "" {
		r.Description = incoming.Description
	}
	if r.Category == "" || (r.Category == extract.DefaultCategory && incoming.Category != "") {
		r.Category = incoming.Category
	}
	return r
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Merger folds candidates into one trend per key.
type Merger struct {
	order []string
	byKey map[string]*model.RichTrend
}

func NewMerger() *Merger {
	return &Merger{byKey: make(map[string]*model.RichTrend)}
}

// Add merges one raw candidate. Untitled candidates are ignored.
func (m *Merger) Add(c model.RawTrendCandidate) {
	n, ok := Normalize(c)
	if !ok {
		return
	}
	m.AddRich(model.RichTrend{NormalizedTrend: n})
}

// AddAll merges every candidate.
func (m *Merger) AddAll(cs []model.RawTrendCandidate) {
	for _, c := range cs {
		m.Add(c)
	}
}

// AddRich merges an enriched trend. Benefit and adoption lists are unioned and
// the first non-nil stack recommendation is kept.
func (m *Merger) AddRich(t model.RichTrend) {
	t.Technology = strings.TrimSpace(t.Technology)
	k := Key(t.Technology)
	if k == "" {
		return
	}
	t.Popularity = Clamp(t.Popularity)
	t.GrowthRate = Clamp(t.GrowthRate)
	if t.Category == "" {
		t.Category = extract.DefaultCategory
	}
	existing, ok := m.byKey[k]
	if !ok {
		cp := t
		cp.Sources = append([]string{}, t.Sources...)
		cp.URLs = append([]string{}, t.URLs...)
		cp.WhyUseIt = append([]string{}, t.WhyUseIt...)
		cp.CompanyAdoptions = append([]model.CompanyAdoption{}, t.CompanyAdoptions...)
		m.byKey[k] = &cp
		m.order = append(m.order, k)
		return
	}
	existing.NormalizedTrend = Merge(existing.NormalizedTrend, t.NormalizedTrend)
	existing.WhyUseIt = unionStrings(existing.WhyUseIt, t.WhyUseIt)
	existing.CompanyAdoptions = unionAdoptions(existing.CompanyAdoptions, t.CompanyAdoptions)
	if existing.StackRecommendations == nil {
		existing.StackRecommendations = t.StackRecommendations
	}
}

// AddAllRich merges every enriched trend.
func (m *Merger) AddAllRich(ts []model.RichTrend) {
	for _, t := range ts {
		m.AddRich(t)
	}
}

// Len is the number of distinct keys.
func (m *Merger) Len() int { return len(m.order) }

// Trends returns a copy of the merged set in first-seen order.
func (m *Merger) Trends() []model.RichTrend {
	out := make([]model.RichTrend, 0, len(m.order))
	for _, k := range m.order {
		t := *m.byKey[k]
		t.Sources = append([]string{}, t.Sources...)
		t.URLs = append([]string{}, t.URLs...)
		t.WhyUseIt = append([]string{}, t.WhyUseIt...)
		t.CompanyAdoptions = append([]model.CompanyAdoption{}, t.CompanyAdoptions...)
		out = append(out, t)
	}
	return out
}

func unionAdoptions(a, b []model.CompanyAdoption) []model.CompanyAdoption {
	out := append([]model.CompanyAdoption{}, a...)
	seen := make(map[string]struct{}, len(a))
	for _, ad := range a {
		seen[Key(ad.Name)] = struct{}{}
	}
	for _, ad := range b {
		if _, ok := seen[Key(ad.Name)]; ok {
			continue
		}
		seen[Key(ad.Name)] = struct{}{}
		out = append(out, ad)
	}
	return out
}
