package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trend-radar/internal/model"
)

// DefaultCategory is used when a record carries no category.
const DefaultCategory = "Technology"

// RichTrends decodes either a JSON array of trend objects or an object with a
// "trends" array and coerces every entry. Entries without a title are dropped.
func RichTrends(text, source, pageURL string, observedAt time.Time) ([]model.RichTrend, error) {
	var raw json.RawMessage
	if err := Decode(text, &raw); err != nil {
		return nil, err
	}
	items, err := trendItems(raw)
	if err != nil {
		return nil, &Error{Stage: StageSchema, Raw: text, Err: err}
	}
	out := make([]model.RichTrend, 0, len(items))
	for _, it := range items {
		rt, ok := coerceTrend(it, source, pageURL, observedAt)
		if !ok {
			continue
		}
		out = append(out, rt)
	}
	return out, nil
}

func trendItems(raw json.RawMessage) ([]map[string]any, error) {
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected trend array or object: %w", err)
	}
	for _, k := range []string{"trends", "data", "items"} {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = nested["trends"]
		}
		if list, ok := v.([]any); ok {
			return objects(list), nil
		}
	}
	// a single trend object
	if firstString(obj, "technology", "title", "name") != "" {
		return []map[string]any{obj}, nil
	}
	return nil, fmt.Errorf("no trends array in object")
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func coerceTrend(m map[string]any, source, pageURL string, observedAt time.Time) (model.RichTrend, bool) {
	title := firstString(m, "technology", "title", "name")
	if title == "" {
		return model.RichTrend{}, false
	}
	category := firstString(m, "category")
	if category == "" {
		category = DefaultCategory
	}
	rt := model.RichTrend{
		NormalizedTrend: model.NormalizedTrend{
			Technology:  title,
			Description: firstString(m, "description", "summary"),
			Popularity:  Clamp(number(m["popularity"])),
			GrowthRate:  Clamp(number(m["growthRate"], m["growth_rate"])),
			Category:    category,
			Sources:     []string{},
			URLs:        []string{},
			LastUpdated: observedAt,
		},
		WhyUseIt:         stringList(first(m, "whyUseIt", "why_use_it", "benefits")),
		CompanyAdoptions: adoptions(first(m, "companyAdoptions", "company_adoptions")),
	}
	if source != "" {
		rt.Sources = append(rt.Sources, source)
	}
	if u := firstString(m, "url", "link"); isHTTPURL(u) {
		rt.URLs = append(rt.URLs, u)
	}
	if pageURL != "" && !contains(rt.URLs, pageURL) {
		rt.URLs = append(rt.URLs, pageURL)
	}
	if sr, ok := first(m, "stackRecommendations", "stack_recommendations").(map[string]any); ok {
		rt.StackRecommendations = stackRecs(sr)
	}
	return rt, true
}

// Candidates converts rich trends to raw candidates for the merger.
func Candidates(trends []model.RichTrend) []model.RawTrendCandidate {
	out := make([]model.RawTrendCandidate, 0, len(trends))
	for _, t := range trends {
		c := model.RawTrendCandidate{
			Title:       t.Technology,
			Description: t.Description,
			ObservedAt:  t.LastUpdated,
			Metrics:     model.Metrics{Popularity: model.Float(t.Popularity), GrowthRate: model.Float(t.GrowthRate)},
			Category:    t.Category,
		}
		if len(t.Sources) > 0 {
			c.SourceName = t.Sources[0]
		}
		if len(t.URLs) > 0 {
			c.URL = t.URLs[0]
		}
		out = append(out, c)
	}
	return out
}

func stackRecs(m map[string]any) *model.StackRecommendations {
	return &model.StackRecommendations{
		Current:             stringList(m["current"]),
		Recommended:         stringList(m["recommended"]),
		Benefits:            stringList(m["benefits"]),
		MigrationComplexity: Complexity(firstString(m, "migrationComplexity", "migration_complexity")),
		EstimatedTimeframe:  firstString(m, "estimatedTimeframe", "estimated_timeframe"),
	}
}

// Complexity normalizes a migration complexity label; unknown values are Medium.
func Complexity(s string) model.MigrationComplexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return model.ComplexityLow
	case "high":
		return model.ComplexityHigh
	default:
		return model.ComplexityMedium
	}
}

func adoptions(v any) []model.CompanyAdoption {
	list, _ := v.([]any)
	out := make([]model.CompanyAdoption, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(m, "name", "company")
		if name == "" {
			continue
		}
		out = append(out, model.CompanyAdoption{
			Name:        name,
			Description: firstString(m, "description"),
			UseCase:     firstString(m, "useCase", "use_case"),
			Impact:      firstString(m, "impact"),
		})
	}
	return out
}

// Clamp bounds v to [0,100]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// number accepts JSON numbers or numeric strings ("85", "85%").
// The first usable value wins.
func number(vals ...any) float64 {
	for _, v := range vals {
		switch x := v.(type) {
		case float64:
			return x
		case string:
			s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%"))
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringList(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if s := strings.TrimSpace(x); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// URLs decodes an array of strings or an object with a "urls" array and keeps
// absolute http(s) urls, deduplicated and capped at limit (0 means no cap).
func URLs(text string, limit int) ([]string, error) {
	var raw json.RawMessage
	if err := Decode(text, &raw); err != nil {
		return nil, err
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, &Error{Stage: StageSchema, Raw: text, Err: err}
		}
		l, ok := obj["urls"].([]any)
		if !ok {
			return nil, &Error{Stage: StageSchema, Raw: text, Err: fmt.Errorf("no urls array in object")}
		}
		list = l
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		var u string
		switch x := v.(type) {
		case string:
			u = strings.TrimSpace(x)
		case map[string]any:
			u = firstString(x, "url", "link")
		}
		if !isHTTPURL(u) || contains(out, u) {
			continue
		}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func isHTTPURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
