package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// getBinaryPath returns the path to the census_agent binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "census_agent"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/census_agent ./cmd/census_agent'", binaryPath)
	}

	return binaryPath
}

// execute runs the root command in-process with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, datasetURL, artifactDir, runTimestamp, verbose = "", "", "", "", false
	showConfigJSON = false
	extractArchive = ""
	ingestOut, ingestDatabaseURL = "", ""
	servePort, serveDatabaseURL = 8080, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func serveHousingArchive(t *testing.T, rows int) string {
	t.Helper()

	rng := rand.New(rand.NewSource(1))
	var sb strings.Builder
	sb.WriteString("longitude,median_income,ocean_proximity\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%.2f,%.4f,NEAR BAY\n", -124+rng.Float64()*10, rng.Float64()*10)
	}
	body := []byte(sb.String())

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "housing.csv", Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	archive := buf.Bytes()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server.URL + "/datasets/housing/housing.tgz"
}
