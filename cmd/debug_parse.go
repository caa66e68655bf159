package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"trend-radar/internal/report"
)

var debugParseCmd = &cobra.Command{
	Use:   "debug-parse <markdown_path>",
	Short: "Debug: parse a digest and print its frontmatter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := report.ParseFile(args[0])
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(doc.Frontmatter))
		for k := range doc.Frontmatter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(os.Stdout, "frontmatter keys: %v\n", keys)
		fmt.Fprintf(os.Stdout, "title: %s\n", doc.Meta.Title)
		fmt.Fprintf(os.Stdout, "technologies: %v\n", doc.Meta.Technologies)
		fmt.Fprintf(os.Stdout, "body bytes: %d\n", len(doc.Body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugParseCmd)
}
