package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/census-ingestion/internal/pipeline"
	"github.com/jonathan/census-ingestion/internal/schemas"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run the full data ingestion stage end-to-end",
	Long: `Downloads the dataset archive, extracts it and writes a stratified train/test split.

Configuration can be loaded from a JSON or YAML file using --config. Environment variables and command-line flags override config file values.`,
	RunE: runIngest,
}

var (
	ingestOut         string
	ingestDatabaseURL string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "Write the ingestion artifact JSON to this file")
	ingestCmd.Flags().StringVar(&ingestDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}

	databaseURL := ingestDatabaseURL
	if databaseURL == "" {
		databaseURL = s.cfg.DatabaseURL
	}

	result, err := pipeline.RunPipeline(context.Background(), pipeline.RunOptions{
		Config:       s.ingestion,
		FetchOptions: s.fetchOptions(),
		Splitter:     s.splitter(),
		Verbose:      s.cfg.Verbose,
		DatabaseURL:  databaseURL,
		Out:          cmd.OutOrStdout(),
		Logger:       s.logger(),
	})
	if err != nil {
		return err
	}

	if ingestOut != "" {
		if err := writeArtifact(ingestOut, result.Artifact); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Artifact: %s\n", ingestOut)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully ingested dataset\n")
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Train: %s\n", result.Artifact.TrainFilePath)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Test: %s\n", result.Artifact.TestFilePath)
	return nil
}

// writeArtifact writes v as indented JSON and validates it against the artifact schema.
func writeArtifact(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact to %s: %w", path, err)
	}

	schemaPath := schemas.ResolveSchemaPath(schemas.IngestionArtifactSchema)
	if schemaPath == "" {
		return nil
	}
	if err := schemas.ValidateJSON(schemaPath, path); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("generated artifact is invalid: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate artifact against schema: %v\n", err)
	}
	return nil
}
