package v2ex

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/source"
	"trend-radar/internal/textclean"
)

// DefaultNodes are the developer boards polled when none are configured.
var DefaultNodes = []string{"programmer", "create"}

// Fetcher turns topics from a set of V2EX nodes into trend candidates.
// A failing node is skipped; the fetch fails only when every node fails.
type Fetcher struct {
	Client   *Client
	Nodes    []string
	Limit    int
	Keywords source.Keywords
	Now      func() time.Time
}

func (f *Fetcher) Name() string { return "v2ex" }

func (f *Fetcher) Fetch(ctx context.Context) ([]model.RawTrendCandidate, error) {
	nodes := f.Nodes
	if len(nodes) == 0 {
		nodes = DefaultNodes
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 30
	}
	now := time.Now().UTC()
	if f.Now != nil {
		now = f.Now()
	}

	var (
		out  []model.RawTrendCandidate
		errs []error
		seen = map[int]bool{}
	)
	for _, node := range nodes {
		topics, err := f.Client.TopicsByNode(ctx, node)
		if err != nil {
			slog.Debug("v2ex: node failed", "node", node, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, t := range topics {
			if seen[t.ID] || !f.Keywords.Allow(t.Title+" "+t.Content) {
				continue
			}
			seen[t.ID] = true
			out = append(out, toCandidate(t, now))
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	if len(errs) == len(nodes) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func toCandidate(t Topic, now time.Time) model.RawTrendCandidate {
	desc := textclean.Summary(t.Content, 280)
	if desc == "" {
		desc = "Discussed on V2EX /go/" + t.Node.Name
	}
	return model.RawTrendCandidate{
		Title:       t.Title,
		Description: desc,
		SourceName:  "v2ex",
		ObservedAt:  now,
		URL:         t.URL,
		Metrics: model.Metrics{
			Popularity: model.Float(Popularity(t.Replies)),
			GrowthRate: model.Float(GrowthRate(t.Replies, t.CreatedAt(), now)),
		},
		Category: "Developer Community",
	}
}

// Popularity maps reply counts onto the 0-100 scale: 200 replies saturates.
func Popularity(replies int) float64 {
	if replies <= 0 {
		return 0
	}
	return min(float64(replies)/2, 100)
}

// GrowthRate is replies per hour of age, where 20 replies/hour saturates.
func GrowthRate(replies int, created, now time.Time) float64 {
	if replies <= 0 {
		return 0
	}
	hours := max(now.Sub(created).Hours(), 1)
	return min(float64(replies)/hours*5, 100)
}
