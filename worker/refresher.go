package worker

import (
	"context"
	"log/slog"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/storage"
	"trend-radar/internal/trend"
)

// TrendRunner is the subset of trend.Pipeline the refresher drives.
type TrendRunner interface {
	Generate(ctx context.Context, profile *model.CompanyProfile) trend.Result
	Aggregate(ctx context.Context, profile *model.CompanyProfile) (trend.Result, error)
}

// HistoryRecorder stores a run's trends under a period bucket.
type HistoryRecorder interface {
	RecordTrends(ctx context.Context, source, period string, trends []model.RichTrend) error
}

// Refresher regenerates trends on an interval so the batch cache stays warm,
// and records non-fallback results into the daily and weekly history.
type Refresher struct {
	Pipeline TrendRunner
	History  HistoryRecorder // optional
	Interval time.Duration
	Now      func() time.Time
}

func (w *Refresher) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		slog.Info("refresher: disabled, no interval")
		return nil
	}
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Refresher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	if w.Now != nil {
		now = w.Now()
	}

	gen := w.Pipeline.Generate(ctx, nil)
	if gen.Source == trend.SourceFallback {
		slog.Warn("refresher: generate fell back to seeds", "run", gen.RunID, "error", gen.ErrorMessage)
	} else {
		w.record(ctx, trend.SourceOpenAI, now, gen.Trends)
	}

	agg, err := w.Pipeline.Aggregate(ctx, nil)
	switch {
	case err != nil:
		slog.Warn("refresher: aggregate aborted", "error", err)
	case agg.Source == trend.SourceFallback:
		slog.Warn("refresher: aggregate fell back to seeds", "run", agg.RunID, "failures", len(agg.Failures))
	default:
		w.record(ctx, trend.SourceAggregate, now, agg.Trends)
	}
	slog.Info("refresher: completed", "generated", len(gen.Trends), "aggregated", len(agg.Trends))
}

func (w *Refresher) record(ctx context.Context, source string, now time.Time, trends []model.RichTrend) {
	if w.History == nil || len(trends) == 0 {
		return
	}
	for _, period := range []string{storage.PeriodKey("daily", now), storage.PeriodKey("weekly", now)} {
		if err := w.History.RecordTrends(ctx, source, period, trends); err != nil {
			slog.Error("refresher: record history", "source", source, "period", period, "error", err)
		}
	}
}
