package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/census-ingestion/internal/fetch"
)

// Metadata is the provenance of a downloaded dataset archive.
type Metadata struct {
	URL         string `json:"url"`
	ArchivePath string `json:"archive_path"`
	Bytes       int64  `json:"bytes"`
	Timestamp   string `json:"timestamp"` // RFC3339 format
	SHA256      string `json:"sha256"`    // hex digest of the archive
}

func newMetadata(result *fetch.Result, at time.Time) *Metadata {
	return &Metadata{
		URL:         result.URL,
		ArchivePath: result.Path,
		Bytes:       result.Bytes,
		Timestamp:   at.UTC().Format(time.RFC3339),
		SHA256:      result.SHA256,
	}
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
