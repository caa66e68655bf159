package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trend-radar/internal/redisclient"
	"trend-radar/internal/storage"

	"github.com/spf13/cobra"
)

var historyTop int

// redisCmd groups Redis-related subcommands.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis utilities",
}

// pingCmd pings the configured Redis server.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and print PONG",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is not configured")
		}

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		if err := redisclient.Ping(context.Background(), rdb); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PONG")
		return nil
	},
}

// historyCmd prints the top recorded trends of a period.
var historyCmd = &cobra.Command{
	Use:   "history <source> [daily|weekly]",
	Short: "Print the top recorded trends for the current period",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is not configured")
		}
		kind := "daily"
		if len(args) == 2 {
			kind = args[1]
		}

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		store := storage.NewRedisStore(rdb, 0)
		period := storage.PeriodKey(kind, time.Now().UTC())
		top, err := store.TopTrends(cmd.Context(), args[0], period, historyTop)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d)\n", args[0], period, len(top))
		for i, s := range top {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-30s %.1f\n", i+1, s.Trend.Technology, s.Score)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyTop, "top", 10, "number of trends to print")
	redisCmd.AddCommand(pingCmd, historyCmd)
	rootCmd.AddCommand(redisCmd)
}
