// Package types provides type definitions for structured data shared across the census ingestion stage.
package types

import (
	"github.com/go-playground/validator/v10"
)

// IngestionConfig holds the locations used by a single data ingestion run.
// It is constructed once by the caller and treated as read-only afterwards.
type IngestionConfig struct {
	DatasetDownloadURL string `json:"dataset_download_url" yaml:"dataset_download_url" validate:"required,url"`
	TgzDownloadDir     string `json:"tgz_download_dir" yaml:"tgz_download_dir" validate:"required"`
	RawDataDir         string `json:"raw_data_dir" yaml:"raw_data_dir" validate:"required"`
	IngestedTrainDir   string `json:"ingested_train_dir" yaml:"ingested_train_dir" validate:"required"`
	IngestedTestDir    string `json:"ingested_test_dir" yaml:"ingested_test_dir" validate:"required"`
}

// Validate validates the IngestionConfig using the validator.
func (c *IngestionConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// IngestionArtifact describes what the ingestion stage produced.
type IngestionArtifact struct {
	TrainFilePath string `json:"train_file_path"`
	TestFilePath  string `json:"test_file_path"`
	IsIngested    bool   `json:"is_ingested"`
	Message       string `json:"message"`
}

// StratumCount holds how many rows of one stratum went to each side of the split.
type StratumCount struct {
	Train int `json:"train"`
	Test  int `json:"test"`
}

// SplitSummary reports the shape of a stratified split.
type SplitSummary struct {
	SourceFile string                  `json:"source_file"`
	TotalRows  int                     `json:"total_rows"`
	TrainRows  int                     `json:"train_rows"`
	TestRows   int                     `json:"test_rows"`
	Strata     map[string]StratumCount `json:"strata"`
}
