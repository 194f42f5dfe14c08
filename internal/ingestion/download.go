package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/census-ingestion/internal/fetch"
)

// DownloadData fetches the dataset archive into the download directory and
// returns the local archive path. Whatever existed at the download directory
// path beforehand is removed, so afterwards it holds only the new archive.
func (d *DataIngestion) DownloadData(ctx context.Context) (string, error) {
	metadata, err := d.FetchArchive(ctx)
	if err != nil {
		return "", err
	}
	return metadata.ArchivePath, nil
}

// FetchArchive is DownloadData returning the archive's provenance.
func (d *DataIngestion) FetchArchive(ctx context.Context) (*Metadata, error) {
	downloadURL := d.config.DatasetDownloadURL
	downloadDir := d.config.TgzDownloadDir

	fileName, err := fetch.FileName(downloadURL)
	if err != nil {
		return nil, wrap(OpDownload, "cannot derive archive file name", err)
	}

	if err := os.RemoveAll(downloadDir); err != nil {
		return nil, wrap(OpDownload, fmt.Sprintf("failed to clear %s", downloadDir), err)
	}
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, wrap(OpDownload, fmt.Sprintf("failed to create %s", downloadDir), err)
	}

	archivePath := filepath.Join(downloadDir, fileName)
	d.logger.Printf("Downloading file from [%s] into : [%s]", downloadURL, archivePath)

	result, err := fetch.Download(ctx, downloadURL, archivePath, d.fetchOptions)
	if err != nil {
		return nil, wrap(OpDownload, "failed to download archive", err)
	}

	d.logger.Printf("File : [%s] has been downloaded successfully (%d bytes, sha256 %s).", archivePath, result.Bytes, result.SHA256)
	return newMetadata(result, time.Now()), nil
}
