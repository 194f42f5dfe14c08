package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/census-ingestion/internal/observability"
	"github.com/spf13/cobra"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the resolved data ingestion configuration",
	Long:  "Resolves defaults, config file, environment and flags into the directories a run would use and prints them without touching the network or filesystem.",
	RunE:  runShowConfig,
}

var showConfigJSON bool

func init() {
	showConfigCmd.Flags().BoolVar(&showConfigJSON, "json", false, "Print as JSON instead of a table")

	rootCmd.AddCommand(showConfigCmd)
}

func runShowConfig(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showConfigJSON {
		data, err := json.MarshalIndent(s.ingestion, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	}

	observability.NewPrinter(out).PrintConfig(&s.ingestion)
	if s.cfg.Verbose {
		_, _ = fmt.Fprintf(os.Stderr, "[VERBOSE] test_size=%v seed=%d timeout=%s\n", s.cfg.TestSize, s.cfg.Seed, s.cfg.Timeout())
	}
	return nil
}
