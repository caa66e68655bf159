package trend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"trend-radar/internal/config"
	"trend-radar/internal/model"
)

func rich(tech, desc string, pop, growth float64) model.RichTrend {
	return model.RichTrend{NormalizedTrend: model.NormalizedTrend{Technology: tech, Description: desc, Popularity: pop, GrowthRate: growth}}
}

func TestBaseScore(t *testing.T) {
	assert.InDelta(t, 0.7*80+0.3*50, BaseScore(model.NormalizedTrend{Popularity: 80, GrowthRate: 50}), 1e-9)
}

func TestRank_WithoutProfileUsesBaseScore(t *testing.T) {
	r := NewRanker(DefaultRelevancePolicy())
	got := r.Rank([]model.RichTrend{
		rich("Low", "", 10, 10),
		rich("High", "", 90, 10),
		rich("Beta", "", 50, 50),
		rich("Alpha", "", 50, 50),
	}, nil, 0)
	assert.Equal(t, []string{"High", "Alpha", "Beta", "Low"}, model.Technologies(got))
}

func TestRank_ProfilePriorityWins(t *testing.T) {
	r := NewRanker(DefaultRelevancePolicy())
	profile := &model.CompanyProfile{InnovationPriorities: []string{"Personalization"}}
	got := r.Rank([]model.RichTrend{
		rich("Quantum Computing", "qubits", 99, 99),
		rich("AI Personalization Engines", "", 5, 5),
	}, profile, 10)
	assert.Equal(t, "AI Personalization Engines", got[0].Technology)
}

func TestRank_Truncates(t *testing.T) {
	var in []model.RichTrend
	for i := 0; i < 30; i++ {
		in = append(in, rich(fmt.Sprintf("T%02d", i), "", float64(i), 0))
	}
	r := NewRanker(DefaultRelevancePolicy())
	assert.Len(t, r.Rank(in, nil, 0), DefaultLimit)
	got := r.Rank(in, nil, 3)
	assert.Equal(t, []string{"T29", "T28", "T27"}, model.Technologies(got))
}

func TestRelevance_Weights(t *testing.T) {
	p := DefaultRelevancePolicy()
	tr := model.RichTrend{
		NormalizedTrend: model.NormalizedTrend{Technology: "Go Microservices", Description: "scale services and cut latency"},
		WhyUseIt:        []string{"Reduces cost of infrastructure"},
	}
	tests := []struct {
		name    string
		profile *model.CompanyProfile
		want    float64
	}{
		{"nil profile", nil, 0},
		{"priority in technology and description", &model.CompanyProfile{InnovationPriorities: []string{"services"}}, 5},
		{"priority only in description", &model.CompanyProfile{InnovationPriorities: []string{"latency"}}, 2},
		{"challenge in description", &model.CompanyProfile{BusinessChallenges: []string{"scale"}}, 2},
		{"challenge in benefits", &model.CompanyProfile{BusinessChallenges: []string{"cost"}}, 3},
		{"expertise", &model.CompanyProfile{TeamExpertise: []string{"go", "java"}}, 1},
		{"very low budget", &model.CompanyProfile{Budget: "Very Low"}, -2},
		{"low budget", &model.CompanyProfile{Budget: "low"}, -1},
		{"very high budget", &model.CompanyProfile{Budget: "very-high"}, 2},
		{"medium budget", &model.CompanyProfile{Budget: "medium"}, 0},
		{"immediate", &model.CompanyProfile{Timeline: "immediate"}, 2},
		{"short term", &model.CompanyProfile{Timeline: "short_term"}, 1},
		{"long term", &model.CompanyProfile{Timeline: "long term"}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Relevance(tr, tt.profile))
		})
	}
}

func TestRelevance_ConfigurableWeights(t *testing.T) {
	p := DefaultRelevancePolicy()
	p.PriorityTechnology = 10
	tr := rich("Vector Databases", "", 0, 0)
	assert.Equal(t, 10.0, p.Relevance(tr, &model.CompanyProfile{InnovationPriorities: []string{"vector"}}))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RankingConfig{
		Expertise: 4,
		Budget:    map[string]float64{"Medium": 1},
		Timeline:  map[string]float64{"long-term": -3},
	})
	assert.Equal(t, 4.0, p.Expertise)
	assert.Equal(t, 3.0, p.PriorityTechnology)
	assert.Equal(t, 1.0, p.Budget["medium"])
	assert.Equal(t, -2.0, p.Budget["very_low"])
	assert.Equal(t, -3.0, p.Timeline["long_term"])
}
