package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"trend-radar/internal/model"
	"trend-radar/internal/trend"

	"github.com/spf13/cobra"
)

var (
	trendsProfileID string
	trendsJSON      bool
	trendsCount     int
)

// trendsCmd groups one-shot pipeline runs.
var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Run the trend pipeline once and print the result",
}

var trendsAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Fan out to every enabled source, merge and rank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, profile *model.CompanyProfile) error {
			res, err := a.pipeline.Run(ctx, trend.RunRequest{Mode: trend.ModeParallelEnumerable, Profile: profile})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		})
	},
}

var trendsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the completion provider for trends, falling back to seeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, profile *model.CompanyProfile) error {
			return printResult(cmd.OutOrStdout(), a.pipeline.Generate(ctx, profile))
		})
	},
}

var trendsDiscoverCmd = &cobra.Command{
	Use:   "discover <topic>",
	Short: "List candidate article URLs for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, _ *model.CompanyProfile) error {
			urls, err := a.pipeline.Discover(ctx, strings.Join(args, " "), trendsCount)
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		})
	},
}

var trendsScrapeCmd = &cobra.Command{
	Use:   "scrape <topic>",
	Short: "Discover URLs for a topic and scrape them in order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, profile *model.CompanyProfile) error {
			out := cmd.OutOrStdout()
			res, err := a.pipeline.Run(ctx, trend.RunRequest{
				Mode:    trend.ModeSequentialDiscovered,
				Topic:   strings.Join(args, " "),
				Count:   trendsCount,
				Profile: profile,
				OnProgress: func(p trend.Progress) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s %s (%d trends so far)\n", p.Step, p.Total, p.Outcome, p.URL, len(p.Trends))
				},
			})
			if err != nil && len(res.Trends) == 0 {
				return err
			}
			if perr := printResult(out, res); perr != nil {
				return perr
			}
			return err
		})
	},
}

// withApp builds the app under a signal-cancelled context and resolves --profile.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, profile *model.CompanyProfile) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx, GetConfig(), trendsProfileID != "")
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.lookupProfile(ctx, trendsProfileID)
	if err != nil {
		return err
	}
	return fn(ctx, a, profile)
}

func printResult(w io.Writer, res trend.Result) error {
	if trendsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"source":       res.Source,
			"generated":    res.Generated,
			"errorMessage": res.ErrorMessage,
			"trends":       res.Trends,
		})
	}
	fmt.Fprintf(w, "source: %s", res.Source)
	if res.ErrorMessage != "" {
		fmt.Fprintf(w, " (%s)", res.ErrorMessage)
	}
	fmt.Fprintln(w)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "unavailable: %v\n", f)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTECHNOLOGY\tPOP\tGROWTH\tCATEGORY\tSOURCES")
	for i, t := range res.Trends {
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%.0f\t%s\t%s\n", i+1, t.Technology, t.Popularity, t.GrowthRate, t.Category, strings.Join(t.Sources, ","))
	}
	return tw.Flush()
}

func init() {
	trendsCmd.PersistentFlags().StringVar(&trendsProfileID, "profile", "", "company profile id used for ranking")
	trendsCmd.PersistentFlags().BoolVar(&trendsJSON, "json", false, "print JSON instead of a table")
	trendsCmd.PersistentFlags().IntVar(&trendsCount, "count", 0, "number of URLs to discover (1-5)")
	trendsCmd.AddCommand(trendsAggregateCmd, trendsGenerateCmd, trendsDiscoverCmd, trendsScrapeCmd)
	rootCmd.AddCommand(trendsCmd)
}
