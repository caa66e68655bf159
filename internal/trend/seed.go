package trend

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trend-radar/internal/extract"
	"trend-radar/internal/model"
)

// SourceFallback tags results served from seed data.
const SourceFallback = "fallback"

//go:embed seeds.yaml
var embeddedSeeds []byte

type seedTrend struct {
	Technology           string                      `yaml:"technology"`
	Description          string                      `yaml:"description"`
	Category             string                      `yaml:"category"`
	Popularity           float64                     `yaml:"popularity"`
	GrowthRate           float64                     `yaml:"growthRate"`
	URL                  string                      `yaml:"url"`
	WhyUseIt             []string                    `yaml:"whyUseIt"`
	CompanyAdoptions     []model.CompanyAdoption     `yaml:"companyAdoptions"`
	StackRecommendations *model.StackRecommendations `yaml:"stackRecommendations"`
}

// Seeds is the static fallback list.
type Seeds struct {
	trends []seedTrend
}

// LoadSeeds reads path, or the embedded list when path is empty.
func LoadSeeds(path string) (*Seeds, error) {
	data := embeddedSeeds
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("seeds: read %s: %w", path, err)
		}
		data = b
	}
	return ParseSeeds(data)
}

// ParseSeeds decodes a yaml seed list. An empty list is an error.
func ParseSeeds(data []byte) (*Seeds, error) {
	var list []seedTrend
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("seeds: decode: %w", err)
	}
	kept := list[:0]
	for _, s := range list {
		if Key(s.Technology) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("seeds: no entries")
	}
	return &Seeds{trends: kept}, nil
}

// MustDefaultSeeds returns the embedded list.
func MustDefaultSeeds() *Seeds {
	s, err := ParseSeeds(embeddedSeeds)
	if err != nil {
		panic(err)
	}
	return s
}

// Candidates returns the seeds as raw candidates tagged fallback.
func (s *Seeds) Candidates(now time.Time) []model.RawTrendCandidate {
	out := make([]model.RawTrendCandidate, 0, len(s.trends))
	for _, t := range s.trends {
		out = append(out, model.RawTrendCandidate{
			Title:       t.Technology,
			Description: t.Description,
			SourceName:  SourceFallback,
			ObservedAt:  now,
			URL:         t.URL,
			Metrics:     model.Metrics{Popularity: model.Float(t.Popularity), GrowthRate: model.Float(t.GrowthRate)},
			Category:    t.Category,
		})
	}
	return out
}

// Rich returns the seeds as enriched trends tagged fallback.
func (s *Seeds) Rich(now time.Time) []model.RichTrend {
	out := make([]model.RichTrend, 0, len(s.trends))
	for _, t := range s.trends {
		cat := t.Category
		if cat == "" {
			cat = extract.DefaultCategory
		}
		rt := model.RichTrend{
			NormalizedTrend: model.NormalizedTrend{
				Technology:  t.Technology,
				Description: t.Description,
				Popularity:  Clamp(t.Popularity),
				GrowthRate:  Clamp(t.GrowthRate),
				Category:    cat,
				Sources:     []string{SourceFallback},
				URLs:        []string{},
				LastUpdated: now,
			},
			WhyUseIt:         append([]string{}, t.WhyUseIt...),
			CompanyAdoptions: append([]model.CompanyAdoption{}, t.CompanyAdoptions...),
		}
		if t.URL != "" {
			rt.URLs = append(rt.URLs, t.URL)
		}
		if t.StackRecommendations != nil {
			sr := *t.StackRecommendations
			sr.MigrationComplexity = extract.Complexity(string(sr.MigrationComplexity))
			rt.StackRecommendations = &sr
		}
		out = append(out, rt)
	}
	return out
}

// Len is the number of seeds.
func (s *Seeds) Len() int { return len(s.trends) }
