package worker

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/report"
	"trend-radar/internal/storage"
)

// ReportStore is the history side of storage.RedisStore.
type ReportStore interface {
	TopTrends(ctx context.Context, source, period string, n int) ([]storage.ScoredTrend, error)
	IsPublished(ctx context.Context, channel, period string) (bool, error)
	MarkPublished(ctx context.Context, channel, period string) error
}

// ReportBuilder writes one markdown digest per period from the recorded
// history once enough trends have accumulated.
type ReportBuilder struct {
	Store      ReportStore
	Source     string // history source, e.g. aggregate or openai
	Frequency  string // daily or weekly
	TopN       int
	MinItems   int
	OutputDir  string
	Interval   time.Duration
	Title      string
	Preface    string
	Postscript string
	Now        func() time.Time
}

func (w *ReportBuilder) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 30 * time.Minute
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

func (w *ReportBuilder) channel() string {
	return "report-" + w.Source
}

// runOnce returns the written path, or "" when nothing was written.
func (w *ReportBuilder) runOnce(ctx context.Context) string {
	now := time.Now().UTC()
	if w.Now != nil {
		now = w.Now()
	}
	freq := strings.ToLower(w.Frequency)
	period := storage.PeriodKey(freq, now)

	published, err := w.Store.IsPublished(ctx, w.channel(), period)
	if err != nil {
		slog.Error("report-builder: check published", "period", period, "error", err)
		return ""
	}
	if published {
		return ""
	}
	scored, err := w.Store.TopTrends(ctx, w.Source, period, w.TopN)
	if err != nil {
		slog.Error("report-builder: fetch top trends", "period", period, "error", err)
		return ""
	}
	if len(scored) == 0 || len(scored) < w.MinItems {
		slog.Debug("report-builder: not enough trends yet", "period", period, "have", len(scored), "want", w.MinItems)
		return ""
	}
	trends := make([]model.RichTrend, 0, len(scored))
	for _, s := range scored {
		trends = append(trends, s.Trend)
	}
	d := report.Build(trends, w.Source, now, report.Options{
		Title:      w.Title,
		Frequency:  freq,
		Preface:    w.Preface,
		Postscript: w.Postscript,
		TopN:       w.TopN,
	})
	path, err := report.Write(filepath.Join(w.OutputDir, w.Source), d)
	if err != nil {
		slog.Error("report-builder: write", "error", err)
		return ""
	}
	if err := w.Store.MarkPublished(ctx, w.channel(), period); err != nil {
		slog.Error("report-builder: mark published", "period", period, "error", err)
	}
	slog.Info("report-builder: published", "path", path, "items", len(trends))
	return path
}
