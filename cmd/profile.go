package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"trend-radar/internal/model"
)

var profileFile string

// profileCmd groups company profile subcommands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Company profile utilities",
}

var profileGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a stored company profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), GetConfig(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		p, err := a.lookupProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Create or replace a company profile from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if profileFile == "" || profileFile == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(profileFile)
		}
		if err != nil {
			return err
		}
		var p model.CompanyProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
		p.ID = args[0]

		a, err := buildApp(cmd.Context(), GetConfig(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.profiles == nil {
			return errors.New("profile store not configured (database.dsn)")
		}
		if err := a.profiles.Upsert(cmd.Context(), &p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s\n", p.ID)
		return nil
	},
}

func init() {
	profileSetCmd.Flags().StringVarP(&profileFile, "file", "f", "", "JSON file with the profile (default: stdin)")
	profileCmd.AddCommand(profileGetCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
