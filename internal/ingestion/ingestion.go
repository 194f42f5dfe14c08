// Package ingestion downloads the census dataset archive, extracts it and
// writes a stratified train/test split for the downstream training stages.
package ingestion

import (
	"context"
	"log"
	"strings"

	"github.com/jonathan/census-ingestion/internal/fetch"
	"github.com/jonathan/census-ingestion/internal/split"
	"github.com/jonathan/census-ingestion/internal/types"
)

const (
	// DefaultSourceColumn is the numeric column bucketed into strata.
	DefaultSourceColumn = "median_income"
	// DefaultStrataColumn is the temporary column holding the stratum label.
	DefaultStrataColumn = "income_cat"
	// CompletedMessage is the artifact message for a successful run.
	CompletedMessage = "Data ingestion completed successfully."
)

var banner = strings.Repeat("=", 20)

// DataIngestion runs the fetch, extract and split steps for one configuration.
type DataIngestion struct {
	config       types.IngestionConfig
	fetchOptions *fetch.Options
	splitter     *split.StratifiedShuffleSplit
	sourceColumn string
	strataColumn string
	bins         []float64
	labels       []string
	logger       *log.Logger
}

// Option customizes a DataIngestion.
type Option func(*DataIngestion)

// WithFetchOptions sets the HTTP options used for the download.
func WithFetchOptions(opts *fetch.Options) Option {
	return func(d *DataIngestion) { d.fetchOptions = opts }
}

// WithSplitter replaces the default 80/20 seeded splitter.
func WithSplitter(s *split.StratifiedShuffleSplit) Option {
	return func(d *DataIngestion) { d.splitter = s }
}

// WithStratification changes which column is bucketed and what the bucket column is called.
func WithStratification(sourceColumn, strataColumn string) Option {
	return func(d *DataIngestion) {
		d.sourceColumn = sourceColumn
		d.strataColumn = strataColumn
	}
}

// WithLogger routes progress logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *DataIngestion) { d.logger = logger }
}

// NewDataIngestion validates cfg and returns a component ready to run.
func NewDataIngestion(cfg types.IngestionConfig, opts ...Option) (*DataIngestion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, wrap(OpConfigure, "invalid ingestion config", err)
	}

	d := &DataIngestion{
		config:       cfg,
		fetchOptions: fetch.DefaultOptions(),
		splitter:     split.NewStratifiedShuffleSplit(),
		sourceColumn: DefaultSourceColumn,
		strataColumn: DefaultStrataColumn,
		bins:         split.IncomeBins,
		labels:       split.IncomeLabels,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the configuration the component was built with.
func (d *DataIngestion) Config() types.IngestionConfig {
	return d.config
}

// InitiateDataIngestion downloads, extracts and splits the dataset in order.
// The first failing step aborts the run and its *Error is returned as is.
func (d *DataIngestion) InitiateDataIngestion(ctx context.Context) (*types.IngestionArtifact, error) {
	d.logger.Printf("%s Data Ingestion log started %s", banner, banner)
	defer d.logger.Printf("%s Data Ingestion log completed %s", banner, banner)

	archivePath, err := d.DownloadData(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := d.ExtractArchive(ctx, archivePath); err != nil {
		return nil, err
	}

	artifact, _, err := d.SplitTrainTest(ctx)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}
