package main

import (
	"context"
	"fmt"

	"github.com/jonathan/census-ingestion/internal/observability"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the dataset archive",
	Long:  "Downloads the dataset archive into the run's tgz_data directory, replacing anything there.",
	RunE:  runDownload,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a dataset archive into the raw data directory",
	Long:  "Empties the run's raw_data directory and extracts every member of the archive into it.",
	RunE:  runExtract,
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Write a stratified train/test split of the raw data",
	Long:  "Reads the single file in the run's raw_data directory, stratifies it on median_income and writes the train and test subsets.",
	RunE:  runSplit,
}

var extractArchive string

func init() {
	extractCmd.Flags().StringVarP(&extractArchive, "archive", "a", "", "Path to the .tgz archive (required)")
	if err := extractCmd.MarkFlagRequired("archive"); err != nil {
		panic(fmt.Sprintf("failed to mark archive flag as required: %v", err))
	}

	rootCmd.AddCommand(downloadCmd, extractCmd, splitCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}
	di, err := s.newIngestion()
	if err != nil {
		return err
	}

	metadata, err := di.FetchArchive(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Successfully downloaded archive to %s\n", metadata.ArchivePath)
	_, _ = fmt.Fprintf(out, "SHA-256: %s\n", metadata.SHA256)
	if s.cfg.Verbose {
		data, err := metadata.ToJSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(data))
	}
	return nil
}

func runExtract(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}
	di, err := s.newIngestion()
	if err != nil {
		return err
	}

	members, err := di.ExtractArchive(context.Background(), extractArchive)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully extracted %d members into %s\n", len(members), s.ingestion.RawDataDir)
	return nil
}

func runSplit(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}
	di, err := s.newIngestion()
	if err != nil {
		return err
	}

	artifact, summary, err := di.SplitTrainTest(context.Background())
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if s.cfg.Verbose {
		printer.PrintSplitSummary(summary)
	}
	printer.PrintArtifact(artifact)
	return nil
}
