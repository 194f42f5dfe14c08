// Package pipeline provides the high-level orchestration for the data ingestion stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/census-ingestion/internal/db"
	"github.com/jonathan/census-ingestion/internal/fetch"
	"github.com/jonathan/census-ingestion/internal/ingestion"
	"github.com/jonathan/census-ingestion/internal/observability"
	"github.com/jonathan/census-ingestion/internal/schemas"
	"github.com/jonathan/census-ingestion/internal/split"
	"github.com/jonathan/census-ingestion/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Config       types.IngestionConfig
	FetchOptions *fetch.Options
	Splitter     *split.StratifiedShuffleSplit
	Verbose      bool
	DatabaseURL  string
	OnProgress   ProgressCallback

	// Out receives step lines and verbose boxes. Defaults to os.Stdout.
	Out io.Writer
	// Logger receives the ingestion component's log lines. Defaults to log.Default().
	Logger *log.Logger
}

// Result is what a pipeline run produced.
type Result struct {
	RunID    uuid.UUID
	Artifact *types.IngestionArtifact
	Summary  *types.SplitSummary
}

// completeTimeout bounds the final status write of a run.
const completeTimeout = 10 * time.Second

// runStore is the part of *db.DB a run writes to.
type runStore interface {
	EnsureSchema(ctx context.Context) error
	CreateRun(ctx context.Context, datasetURL string) (uuid.UUID, error)
	SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string) error
	Close()
}

// openStore connects to PostgreSQL. Tests replace it with an in-memory store.
var openStore = func(ctx context.Context, databaseURL string) (runStore, error) {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return database, nil
}

type runner struct {
	opts     *RunOptions
	out      io.Writer
	printer  *observability.Printer
	database runStore
	runID    uuid.UUID
}

// emitProgress calls the progress callback if configured
func (r *runner) emitProgress(step, message string, content any) {
	if r.opts.OnProgress == nil {
		return
	}
	event := ProgressEvent{
		Step:     step,
		Category: db.CategoryIngestion,
		Message:  message,
		Content:  content,
	}
	if r.runID != uuid.Nil {
		event.RunID = r.runID.String()
	}
	r.opts.OnProgress(event)
}

// save persists an artifact when a database is connected. Failures only warn.
func (r *runner) save(ctx context.Context, step string, content any) {
	if r.database == nil || r.runID == uuid.Nil {
		return
	}
	if err := r.database.SaveArtifact(ctx, r.runID, step, db.CategoryIngestion, content); err != nil {
		_, _ = fmt.Fprintf(r.out, "Warning: Failed to save %s artifact: %v\n", step, err)
	}
}

// finish records the final run status. The write detaches from ctx so a run
// aborted by cancellation is still marked failed instead of left running.
func (r *runner) finish(ctx context.Context, runErr error) {
	if r.database == nil || r.runID == uuid.Nil {
		return
	}

	status := db.RunStatusCompleted
	if runErr != nil {
		status = db.RunStatusFailed
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
	defer cancel()
	if err := r.database.CompleteRun(ctx, r.runID, status); err != nil {
		_, _ = fmt.Fprintf(r.out, "Warning: Failed to mark run %s as %s: %v\n", r.runID, status, err)
	}
}

// connect opens the database and creates the run record. Any failure leaves
// the run without persistence rather than aborting it.
func (r *runner) connect(ctx context.Context) {
	if r.opts.DatabaseURL == "" {
		return
	}

	database, err := openStore(ctx, r.opts.DatabaseURL)
	if err != nil {
		_, _ = fmt.Fprintf(r.out, "Warning: Failed to connect to database: %v\n", err)
		_, _ = fmt.Fprintf(r.out, "Continuing without database persistence...\n")
		return
	}
	if err := database.EnsureSchema(ctx); err != nil {
		_, _ = fmt.Fprintf(r.out, "Warning: %v\n", err)
		_, _ = fmt.Fprintf(r.out, "Continuing without database persistence...\n")
		database.Close()
		return
	}

	runID, err := database.CreateRun(ctx, r.opts.Config.DatasetDownloadURL)
	if err != nil {
		_, _ = fmt.Fprintf(r.out, "Warning: Failed to create database run: %v\n", err)
		database.Close()
		return
	}

	r.database = database
	r.runID = runID
	if r.opts.Verbose {
		log.Printf("[VERBOSE] Created database run: %s", runID)
	}
}

// RunPipeline downloads, extracts and splits the dataset described by opts.Config.
func RunPipeline(ctx context.Context, opts RunOptions) (result *Result, err error) {
	r := &runner{opts: &opts, out: opts.Out}
	if r.out == nil {
		r.out = os.Stdout
	}
	r.printer = observability.NewPrinter(r.out)

	ingestOpts := []ingestion.Option{}
	if opts.FetchOptions != nil {
		ingestOpts = append(ingestOpts, ingestion.WithFetchOptions(opts.FetchOptions))
	}
	if opts.Splitter != nil {
		ingestOpts = append(ingestOpts, ingestion.WithSplitter(opts.Splitter))
	}
	if opts.Logger != nil {
		ingestOpts = append(ingestOpts, ingestion.WithLogger(opts.Logger))
	}

	di, err := ingestion.NewDataIngestion(opts.Config, ingestOpts...)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		r.printer.PrintConfig(&opts.Config)
	}

	r.connect(ctx)
	if r.database != nil {
		defer r.database.Close()
		defer func() { r.finish(ctx, err) }()
	}

	_, _ = fmt.Fprintf(r.out, "Step 1/3: Downloading dataset from %s...\n", opts.Config.DatasetDownloadURL)
	metadata, err := di.FetchArchive(ctx)
	if err != nil {
		return nil, err
	}
	archivePath := metadata.ArchivePath
	r.save(ctx, db.StepDownload, &db.DownloadRecord{
		URL:          metadata.URL,
		ArchivePath:  archivePath,
		Bytes:        metadata.Bytes,
		SHA256:       metadata.SHA256,
		DownloadedAt: metadata.Timestamp,
	})
	r.emitProgress(db.StepDownload, fmt.Sprintf("Downloaded archive to %s", archivePath), metadata)

	_, _ = fmt.Fprintf(r.out, "Step 2/3: Extracting %s...\n", archivePath)
	members, err := di.ExtractArchive(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		log.Printf("[VERBOSE] Extracted members: %v", members)
	}
	r.save(ctx, db.StepExtract, &db.ExtractRecord{RawDataDir: opts.Config.RawDataDir, Members: members})
	r.emitProgress(db.StepExtract, fmt.Sprintf("Extracted %d members", len(members)), members)

	_, _ = fmt.Fprintf(r.out, "Step 3/3: Splitting into train and test sets...\n")
	artifact, summary, err := di.SplitTrainTest(ctx)
	if err != nil {
		return nil, err
	}
	if schemaPath := schemas.ResolveSchemaPath(schemas.SplitSummarySchema); schemaPath != "" {
		if err := schemas.ValidateValue(schemaPath, summary); err != nil {
			return nil, fmt.Errorf("split summary failed schema validation: %w", err)
		}
	}
	if opts.Verbose {
		r.printer.PrintSplitSummary(summary)
		r.printer.PrintArtifact(artifact)
	}
	r.save(ctx, db.StepSplitSummary, summary)
	r.save(ctx, db.StepIngestionArtifact, artifact)
	r.emitProgress(db.StepIngestionArtifact,
		fmt.Sprintf("Split %d rows into %d train and %d test", summary.TotalRows, summary.TrainRows, summary.TestRows), artifact)

	return &Result{RunID: r.runID, Artifact: artifact, Summary: summary}, nil
}
