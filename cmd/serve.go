package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trend-radar/internal/api"
	"trend-radar/internal/config"
	"trend-radar/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := buildApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		var profiles api.ProfileStore
		if a.profiles != nil {
			profiles = a.profiles
		}
		ws := []worker.Worker{&worker.APIServer{
			Server:          api.New(a.pipeline, profiles),
			Addr:            cfg.Server.Addr,
			ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second),
		}}

		interval := config.Duration(cfg.Refresh.Interval, 0)
		cacheTTL := config.Duration(cfg.Pipeline.CacheTTL, 0)
		if interval > 0 && (cacheTTL > 0 || a.store != nil) {
			r := &worker.Refresher{Pipeline: a.pipeline, Interval: interval}
			if a.store != nil {
				r.History = a.store
			}
			slog.Info("starting refresher", "interval", interval, "cache_ttl", cacheTTL, "history", a.store != nil)
			ws = append(ws, r)
		}

		if cfg.Report.Enabled {
			if a.store == nil {
				slog.Warn("report builder needs redis history, skipping")
			} else {
				slog.Info("starting report builder", "source", cfg.Report.Source, "frequency", cfg.Report.Frequency)
				ws = append(ws, &worker.ReportBuilder{
					Store:      a.store,
					Source:     cfg.Report.Source,
					Frequency:  cfg.Report.Frequency,
					TopN:       cfg.Report.TopN,
					MinItems:   cfg.Report.MinItems,
					OutputDir:  cfg.Report.OutputDir,
					Interval:   config.Duration(cfg.Report.Interval, 30*time.Minute),
					Title:      cfg.Report.Title,
					Preface:    cfg.Report.Preface,
					Postscript: cfg.Report.Postscript,
				})
			}
		}

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			slog.Info("received signal, shutting down", "signal", s.String())
			cancel()
		}()

		return worker.NewManager(ws...).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
