package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"trend-radar/internal/model"
	"trend-radar/internal/report"
	"trend-radar/internal/trend"

	"github.com/spf13/cobra"
)

var (
	reportSource string
	reportStdout bool
)

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Run the pipeline once and write a markdown digest",
	Long:  "Runs the aggregate or openai flow and renders the ranked trends as a markdown digest. The output directory defaults to report.output_dir.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		dir := filepath.Join(cfg.Report.OutputDir, reportSource)
		if len(args) == 1 {
			dir = args[0]
		}
		return withApp(cmd, func(ctx context.Context, a *app, profile *model.CompanyProfile) error {
			var res trend.Result
			switch reportSource {
			case trend.SourceAggregate:
				var err error
				if res, err = a.pipeline.Aggregate(ctx, profile); err != nil {
					return err
				}
			case trend.SourceOpenAI:
				res = a.pipeline.Generate(ctx, profile)
			default:
				return fmt.Errorf("unknown --source %q (aggregate|openai)", reportSource)
			}
			if len(res.Trends) == 0 {
				return fmt.Errorf("no trends to report (source %s)", res.Source)
			}

			d := report.Build(res.Trends, res.Source, time.Now().UTC(), report.Options{
				Title:      cfg.Report.Title,
				Frequency:  cfg.Report.Frequency,
				Preface:    cfg.Report.Preface,
				Postscript: cfg.Report.Postscript,
				TopN:       cfg.Report.TopN,
			})
			if reportStdout {
				out, err := report.Render(d)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			path, err := report.Write(dir, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportSource, "source", trend.SourceAggregate, "flow to run: aggregate or openai")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "print the digest instead of writing a file")
	reportCmd.Flags().StringVar(&trendsProfileID, "profile", "", "company profile id used for ranking")
	rootCmd.AddCommand(reportCmd)
}
