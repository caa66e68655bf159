package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trend-radar/internal/extract"
)

var debugExtractSource string

var debugExtractCmd = &cobra.Command{
	Use:   "debug-extract <file|->",
	Short: "Debug: run trend extraction over a saved completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		trends, err := extract.RichTrends(string(raw), debugExtractSource, "", time.Now().UTC())
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(trends, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	debugExtractCmd.Flags().StringVar(&debugExtractSource, "source", "openai", "source tag stamped on extracted trends")
	rootCmd.AddCommand(debugExtractCmd)
}
