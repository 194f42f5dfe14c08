package ingestion

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/census-ingestion/internal/archive"
)

// ExtractArchive unpacks archivePath into a freshly emptied raw data directory
// and returns the extracted member names.
func (d *DataIngestion) ExtractArchive(ctx context.Context, archivePath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap(OpExtract, "cancelled", err)
	}

	rawDataDir := d.config.RawDataDir

	// Clear the directory itself so members from a previous run never survive.
	if err := os.RemoveAll(rawDataDir); err != nil {
		return nil, wrap(OpExtract, fmt.Sprintf("failed to clear %s", rawDataDir), err)
	}
	if err := os.MkdirAll(rawDataDir, 0755); err != nil {
		return nil, wrap(OpExtract, fmt.Sprintf("failed to create %s", rawDataDir), err)
	}

	d.logger.Printf("Extracting file : [%s] into : [%s]", archivePath, rawDataDir)
	members, err := archive.Extract(archivePath, rawDataDir)
	if err != nil {
		return nil, wrap(OpExtract, "failed to extract archive", err)
	}

	d.logger.Printf("Extraction completed: %d members.", len(members))
	return members, nil
}
