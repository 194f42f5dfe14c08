// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/census-ingestion/internal/types"
)

// DefaultDatasetURL is the housing archive the census stage ingests by default.
const DefaultDatasetURL = "https://raw.githubusercontent.com/ageron/handson-ml/master/datasets/housing/housing.tgz"

// DefaultArtifactDir is where per-run directories are created when no explicit paths are given.
const DefaultArtifactDir = "artifact"

// TimestampLayout names per-run directories, e.g. 2026-10-19-14-03-52.
const TimestampLayout = "2006-01-02-15-04-05"

// Layout of a run directory below <artifact_dir>/data_ingestion/<timestamp>/.
const (
	dataIngestionDir = "data_ingestion"
	tgzDownloadDir   = "tgz_data"
	rawDataDir       = "raw_data"
	ingestedDir      = "ingested_data"
	ingestedTrainDir = "train"
	ingestedTestDir  = "test"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Source
	DatasetDownloadURL string `json:"dataset_download_url,omitempty" yaml:"dataset_download_url,omitempty" validate:"omitempty,url"`

	// Paths. Explicit directories win over the artifact_dir layout.
	ArtifactDir      string `json:"artifact_dir,omitempty" yaml:"artifact_dir,omitempty"`
	TgzDownloadDir   string `json:"tgz_download_dir,omitempty" yaml:"tgz_download_dir,omitempty"`
	RawDataDir       string `json:"raw_data_dir,omitempty" yaml:"raw_data_dir,omitempty"`
	IngestedTrainDir string `json:"ingested_train_dir,omitempty" yaml:"ingested_train_dir,omitempty"`
	IngestedTestDir  string `json:"ingested_test_dir,omitempty" yaml:"ingested_test_dir,omitempty"`

	// Split
	TestSize float64 `json:"test_size,omitempty" yaml:"test_size,omitempty" validate:"omitempty,gt=0,lt=1"`
	Seed     int64   `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Behavior
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,gt=0"`
	Verbose        bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	DatabaseURL    string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		DatasetDownloadURL: DefaultDatasetURL,
		ArtifactDir:        DefaultArtifactDir,
		TestSize:           0.2,
		Seed:               2,
		TimeoutSeconds:     300,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// after merging with defaults.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Either every directory is explicit or the artifact layout supplies the missing ones.
	if c.ArtifactDir == "" {
		for name, dir := range map[string]string{
			"tgz_download_dir":   c.TgzDownloadDir,
			"raw_data_dir":       c.RawDataDir,
			"ingested_train_dir": c.IngestedTrainDir,
			"ingested_test_dir":  c.IngestedTestDir,
		} {
			if dir == "" {
				return fmt.Errorf("config error: '%s' is required when 'artifact_dir' is empty", name)
			}
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatasetDownloadURL == "" {
		result.DatasetDownloadURL = defaults.DatasetDownloadURL
	}
	if result.ArtifactDir == "" {
		result.ArtifactDir = defaults.ArtifactDir
	}
	if result.TgzDownloadDir == "" {
		result.TgzDownloadDir = defaults.TgzDownloadDir
	}
	if result.RawDataDir == "" {
		result.RawDataDir = defaults.RawDataDir
	}
	if result.IngestedTrainDir == "" {
		result.IngestedTrainDir = defaults.IngestedTrainDir
	}
	if result.IngestedTestDir == "" {
		result.IngestedTestDir = defaults.IngestedTestDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Numeric fields: use default if zero
	if result.TestSize == 0 {
		result.TestSize = defaults.TestSize
	}
	if result.Seed == 0 {
		result.Seed = defaults.Seed
	}
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Timeout returns the download timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RunDir returns <artifact_dir>/data_ingestion/<timestamp>.
func (c *Config) RunDir(at time.Time) string {
	return filepath.Join(c.ArtifactDir, dataIngestionDir, at.Format(TimestampLayout))
}

// IngestionConfig resolves the directories for a run started at the given time.
func (c *Config) IngestionConfig(at time.Time) types.IngestionConfig {
	runDir := c.RunDir(at)
	pick := func(explicit string, parts ...string) string {
		if explicit != "" {
			return explicit
		}
		return filepath.Join(append([]string{runDir}, parts...)...)
	}

	return types.IngestionConfig{
		DatasetDownloadURL: c.DatasetDownloadURL,
		TgzDownloadDir:     pick(c.TgzDownloadDir, tgzDownloadDir),
		RawDataDir:         pick(c.RawDataDir, rawDataDir),
		IngestedTrainDir:   pick(c.IngestedTrainDir, ingestedDir, ingestedTrainDir),
		IngestedTestDir:    pick(c.IngestedTestDir, ingestedDir, ingestedTestDir),
	}
}
