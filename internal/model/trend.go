package model

import "time"

// Metrics carries raw, unbounded numbers reported by a source.
// Nil means the source did not report the metric.
type Metrics struct {
	Popularity *float64 `json:"popularity,omitempty"`
	GrowthRate *float64 `json:"growthRate,omitempty"`
}

// RawTrendCandidate is one item captured from a source before normalization.
type RawTrendCandidate struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SourceName  string    `json:"sourceName"`
	ObservedAt  time.Time `json:"observedAt"`
	URL         string    `json:"url,omitempty"`
	Metrics     Metrics   `json:"metrics"`
	Category    string    `json:"category,omitempty"`
}

// NormalizedTrend is the canonical, merged view of a technology.
type NormalizedTrend struct {
	Technology  string    `json:"technology"`
	Description string    `json:"description"`
	Popularity  float64   `json:"popularity"`
	GrowthRate  float64   `json:"growthRate"`
	Category    string    `json:"category"`
	Sources     []string  `json:"sources"`
	URLs        []string  `json:"urls"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CompanyAdoption describes a company known to use a technology.
type CompanyAdoption struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	UseCase     string `json:"useCase" yaml:"useCase"`
	Impact      string `json:"impact" yaml:"impact"`
}

// MigrationComplexity is one of Low, Medium, High.
type MigrationComplexity string

const (
	ComplexityLow    MigrationComplexity = "Low"
	ComplexityMedium MigrationComplexity = "Medium"
	ComplexityHigh   MigrationComplexity = "High"
)

// StackRecommendations is only present in enriched flows.
type StackRecommendations struct {
	Current             []string            `json:"current" yaml:"current"`
	Recommended         []string            `json:"recommended" yaml:"recommended"`
	Benefits            []string            `json:"benefits" yaml:"benefits"`
	MigrationComplexity MigrationComplexity `json:"migrationComplexity" yaml:"migrationComplexity"`
	EstimatedTimeframe  string              `json:"estimatedTimeframe" yaml:"estimatedTimeframe"`
}

// RichTrend is a NormalizedTrend enriched by the LLM flows.
type RichTrend struct {
	NormalizedTrend
	WhyUseIt             []string              `json:"whyUseIt"`
	CompanyAdoptions     []CompanyAdoption     `json:"companyAdoptions"`
	StackRecommendations *StackRecommendations `json:"stackRecommendations,omitempty"`
}

// Technologies lists the technology names in order.
func Technologies(trends []RichTrend) []string {
	out := make([]string, 0, len(trends))
	for _, t := range trends {
		out = append(out, t.Technology)
	}
	return out
}

// Float returns a pointer to v, for building Metrics literals.
func Float(v float64) *float64 {
	return &v
}
