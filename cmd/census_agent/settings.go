package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonathan/census-ingestion/internal/config"
	"github.com/jonathan/census-ingestion/internal/fetch"
	"github.com/jonathan/census-ingestion/internal/ingestion"
	"github.com/jonathan/census-ingestion/internal/schemas"
	"github.com/jonathan/census-ingestion/internal/split"
	"github.com/jonathan/census-ingestion/internal/types"
)

// Flags shared by every subcommand.
var (
	configPath   string
	datasetURL   string
	artifactDir  string
	runTimestamp string
	verbose      bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	flags.StringVarP(&datasetURL, "url", "u", "", "Dataset archive URL (defaults to "+config.EnvDatasetURL+" or the housing archive)")
	flags.StringVar(&artifactDir, "artifact-dir", "", "Root directory for run artifacts")
	flags.StringVar(&runTimestamp, "timestamp", "", "Run directory timestamp ("+config.TimestampLayout+"); defaults to now. Pass the same value to run steps separately; not accepted by serve")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// settings is the fully resolved configuration for one command invocation.
type settings struct {
	cfg       config.Config
	ingestion types.IngestionConfig
}

// resolveSettings applies, in increasing precedence: defaults, config file,
// environment, then command-line flags.
func resolveSettings() (*settings, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded

		if schemaPath := schemas.ResolveSchemaPath(schemas.ConfigSchema); schemaPath != "" {
			if err := schemas.ValidateValue(schemaPath, cfg); err != nil {
				return nil, fmt.Errorf("config file %s is invalid: %w", configPath, err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if datasetURL != "" {
		cfg.DatasetDownloadURL = datasetURL
	}
	if artifactDir != "" {
		cfg.ArtifactDir = artifactDir
	}
	if verbose {
		cfg.Verbose = true
	}

	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	at := time.Now()
	if runTimestamp != "" {
		parsed, err := time.ParseInLocation(config.TimestampLayout, runTimestamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --timestamp %q: expected layout %s", runTimestamp, config.TimestampLayout)
		}
		at = parsed
	}

	return &settings{cfg: merged, ingestion: merged.IngestionConfig(at)}, nil
}

func (s *settings) fetchOptions() *fetch.Options {
	opts := fetch.DefaultOptions()
	opts.Timeout = s.cfg.Timeout()
	return opts
}

func (s *settings) splitter() *split.StratifiedShuffleSplit {
	return &split.StratifiedShuffleSplit{TestSize: s.cfg.TestSize, Seed: s.cfg.Seed}
}

func (s *settings) logger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

func (s *settings) newIngestion() (*ingestion.DataIngestion, error) {
	return ingestion.NewDataIngestion(s.ingestion,
		ingestion.WithFetchOptions(s.fetchOptions()),
		ingestion.WithSplitter(s.splitter()),
		ingestion.WithLogger(s.logger()),
	)
}
