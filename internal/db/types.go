package db

import (
	"time"

	"github.com/google/uuid"
)

// Run represents an ingestion run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	DatasetURL  string     `json:"dataset_url"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Artifact step constants for known artifact types
const (
	StepDownload          = "download"
	StepExtract           = "extract"
	StepSplitSummary      = "split_summary"
	StepIngestionArtifact = "ingestion_artifact"
)

// Artifact category constants
const (
	CategoryIngestion = "ingestion"
)

// DownloadRecord is stored under StepDownload.
type DownloadRecord struct {
	URL          string `json:"url"`
	ArchivePath  string `json:"archive_path"`
	Bytes        int64  `json:"bytes"`
	SHA256       string `json:"sha256"`
	DownloadedAt string `json:"downloaded_at"` // RFC3339
}

// ExtractRecord is stored under StepExtract.
type ExtractRecord struct {
	RawDataDir string   `json:"raw_data_dir"`
	Members    []string `json:"members"`
}
