package trend

import (
	"sort"
	"strings"

	"trend-radar/internal/config"
	"trend-radar/internal/model"
)

// DefaultLimit caps ranked output.
const DefaultLimit = 20

// RelevancePolicy holds the profile relevance weights. The values are tuning
// knobs, not derived constants.
type RelevancePolicy struct {
	PriorityTechnology   float64
	PriorityDescription  float64
	ChallengeDescription float64
	ChallengeBenefit     float64
	Expertise            float64
	Budget               map[string]float64
	Timeline             map[string]float64
}

// DefaultRelevancePolicy returns the reference weights.
func DefaultRelevancePolicy() RelevancePolicy {
	return RelevancePolicy{
		PriorityTechnology:   3,
		PriorityDescription:  2,
		ChallengeDescription: 2,
		ChallengeBenefit:     3,
		Expertise:            1,
		Budget: map[string]float64{
			"very_low":  -2,
			"low":       -1,
			"very_high": 2,
		},
		Timeline: map[string]float64{
			"immediate":  2,
			"short_term": 1,
			"long_term":  -1,
		},
	}
}

// PolicyFromConfig overlays configured weights on the defaults. Zero values
// keep the default weight; tier maps replace individual tiers.
func PolicyFromConfig(c config.RankingConfig) RelevancePolicy {
	p := DefaultRelevancePolicy()
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&p.PriorityTechnology, c.PriorityTechnology)
	set(&p.PriorityDescription, c.PriorityDescription)
	set(&p.ChallengeDescription, c.ChallengeDescription)
	set(&p.ChallengeBenefit, c.ChallengeBenefit)
	set(&p.Expertise, c.Expertise)
	for k, v := range c.Budget {
		p.Budget[tier(k)] = v
	}
	for k, v := range c.Timeline {
		p.Timeline[tier(k)] = v
	}
	return p
}

// BaseScore weighs popularity over growth.
func BaseScore(t model.NormalizedTrend) float64 {
	return 0.7*t.Popularity + 0.3*t.GrowthRate
}

// Relevance scores t against a profile; nil profile scores 0.
func (p RelevancePolicy) Relevance(t model.RichTrend, profile *model.CompanyProfile) float64 {
	if profile == nil {
		return 0
	}
	tech := strings.ToLower(t.Technology)
	desc := strings.ToLower(t.Description)
	benefits := strings.ToLower(strings.Join(t.WhyUseIt, " "))
	if t.StackRecommendations != nil {
		benefits += " " + strings.ToLower(strings.Join(t.StackRecommendations.Benefits, " "))
	}

	var score float64
	for _, pr := range terms(profile.InnovationPriorities) {
		if strings.Contains(tech, pr) {
			score += p.PriorityTechnology
		}
		if strings.Contains(desc, pr) {
			score += p.PriorityDescription
		}
	}
	for _, ch := range terms(profile.BusinessChallenges) {
		if strings.Contains(desc, ch) {
			score += p.ChallengeDescription
		}
		if strings.Contains(benefits, ch) {
			score += p.ChallengeBenefit
		}
	}
	for _, sk := range terms(profile.TeamExpertise) {
		if strings.Contains(tech, sk) {
			score += p.Expertise
		}
	}
	score += p.Budget[tier(profile.Budget)]
	score += p.Timeline[tier(profile.Timeline)]
	return score
}

func terms(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// tier folds "Very Low", "very-low" and "very_low" into one key.
func tier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Ranker orders trends by relevance, then base score, then name.
type Ranker struct {
	Policy RelevancePolicy
}

func NewRanker(p RelevancePolicy) *Ranker {
	return &Ranker{Policy: p}
}

// Rank sorts a copy of trends and truncates it to limit (DefaultLimit when
// limit <= 0).
func (r *Ranker) Rank(trends []model.RichTrend, profile *model.CompanyProfile, limit int) []model.RichTrend {
	if limit <= 0 {
		limit = DefaultLimit
	}
	type scored struct {
		t         model.RichTrend
		relevance float64
		base      float64
	}
	items := make([]scored, len(trends))
	for i, t := range trends {
		items[i] = scored{t: t, relevance: r.Policy.Relevance(t, profile), base: BaseScore(t.NormalizedTrend)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		if a.base != b.base {
			return a.base > b.base
		}
		return Key(a.t.Technology) < Key(b.t.Technology)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]model.RichTrend, len(items))
	for i, it := range items {
		out[i] = it.t
	}
	return out
}
