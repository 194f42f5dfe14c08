package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchArchive_RecordsProvenance(t *testing.T) {
	body := tgz(t, map[string][]byte{"housing.csv": housingCSV(50, 3)})
	cfg := testConfig(t, serve(t, body).URL)

	before := time.Now().UTC().Truncate(time.Second)
	metadata, err := newTestIngestion(t, cfg).FetchArchive(context.Background())
	require.NoError(t, err)

	digest := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(digest[:]), metadata.SHA256)
	assert.Equal(t, cfg.DatasetDownloadURL, metadata.URL)
	assert.Equal(t, filepath.Join(cfg.TgzDownloadDir, "housing.tgz"), metadata.ArchivePath)
	assert.Equal(t, int64(len(body)), metadata.Bytes)

	ts, err := time.Parse(time.RFC3339, metadata.Timestamp)
	require.NoError(t, err)
	assert.False(t, ts.Before(before))
}

func TestMetadata_ToJSON(t *testing.T) {
	metadata := &Metadata{
		URL:         "https://example.com/housing.tgz",
		ArchivePath: "/data/tgz_data/housing.tgz",
		Bytes:       42,
		Timestamp:   "2026-10-19T14:03:52Z",
		SHA256:      "abc123",
	}

	data, err := metadata.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sha256\": \"abc123\"")

	var decoded Metadata
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *metadata, decoded)
}
