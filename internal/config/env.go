package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables that override file configuration.
const (
	EnvDatasetURL  = "CENSUS_DATASET_URL"
	EnvArtifactDir = "CENSUS_ARTIFACT_DIR"
	EnvDatabaseURL = "DATABASE_URL"
	EnvSeed        = "CENSUS_SPLIT_SEED"
)

// ApplyEnv overrides fields from environment variables that are set and non-empty.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDatasetURL); v != "" {
		c.DatasetDownloadURL = v
	}
	if v := os.Getenv(EnvArtifactDir); v != "" {
		c.ArtifactDir = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", EnvSeed, err)
		}
		// Zero is the unset value for Seed and would silently become the default.
		if seed == 0 {
			return fmt.Errorf("%s must be non-zero", EnvSeed)
		}
		c.Seed = seed
	}
	return nil
}
