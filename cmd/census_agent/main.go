// Package main implements the census_agent CLI, which runs the census data ingestion stage.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "census_agent",
	Short:        "Census dataset ingestion",
	Long:         "census_agent downloads the census housing archive, extracts it and writes a stratified train/test split for the training stages.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
