package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/census-ingestion/internal/db"
	"github.com/jonathan/census-ingestion/internal/pipeline"
	"github.com/jonathan/census-ingestion/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion HTTP API",
	Long: `Starts an HTTP server that triggers ingestion runs and exposes their records.

Endpoints:
  POST /runs                         run one ingestion and return its artifact
  POST /runs/stream                  run one ingestion, streaming progress as SSE
  GET  /runs                         list recent runs (requires a database)
  GET  /runs/{id}                    run status
  GET  /runs/{id}/artifacts/{step}   stored step artifact
  GET  /health                       health check`,
	RunE: runServe,
}

var (
	servePort        int
	serveDatabaseURL string
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	if runTimestamp != "" {
		return fmt.Errorf("--timestamp cannot be used with serve: every run gets a run directory stamped with its start time")
	}

	s, err := resolveSettings()
	if err != nil {
		return err
	}

	databaseURL := serveDatabaseURL
	if databaseURL == "" {
		databaseURL = s.cfg.DatabaseURL
	}

	cfg := server.Config{Port: servePort, Run: s.runFunc(databaseURL)}
	if databaseURL != "" {
		database, err := db.Connect(context.Background(), databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(context.Background()); err != nil {
			return err
		}
		cfg.Store = database
	} else {
		log.Println("Warning: no database configured, run history endpoints are disabled")
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	return srv.Start()
}

// runFunc builds a fresh run directory for every request.
func (s *settings) runFunc(databaseURL string) server.RunFunc {
	return func(ctx context.Context, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
		return pipeline.RunPipeline(ctx, pipeline.RunOptions{
			Config:       s.cfg.IngestionConfig(time.Now()),
			FetchOptions: s.fetchOptions(),
			Splitter:     s.splitter(),
			Verbose:      s.cfg.Verbose,
			DatabaseURL:  databaseURL,
			OnProgress:   onProgress,
			Logger:       s.logger(),
		})
	}
}
