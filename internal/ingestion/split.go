package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/census-ingestion/internal/dataset"
	"github.com/jonathan/census-ingestion/internal/split"
	"github.com/jonathan/census-ingestion/internal/types"
)

// SourceFile returns the path of the single file in the raw data directory.
// An empty directory, several entries or a lone subdirectory are all errors.
func (d *DataIngestion) SourceFile() (string, error) {
	rawDataDir := d.config.RawDataDir

	entries, err := os.ReadDir(rawDataDir)
	if err != nil {
		return "", wrap(OpSplit, fmt.Sprintf("failed to list %s", rawDataDir), err)
	}

	switch {
	case len(entries) == 0:
		return "", wrap(OpSplit, fmt.Sprintf("%s is empty", rawDataDir), ErrRawDataLayout)
	case len(entries) > 1:
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return "", wrap(OpSplit, fmt.Sprintf("%s holds %d entries [%s]", rawDataDir, len(entries), strings.Join(names, ", ")), ErrRawDataLayout)
	case !entries[0].Type().IsRegular():
		return "", wrap(OpSplit, fmt.Sprintf("%s is not a regular file", entries[0].Name()), ErrRawDataLayout)
	}

	return filepath.Join(rawDataDir, entries[0].Name()), nil
}

// SplitTrainTest reads the extracted table, stratifies it on the source column
// and writes the train and test subsets under the same file name into their
// configured directories.
func (d *DataIngestion) SplitTrainTest(ctx context.Context) (*types.IngestionArtifact, *types.SplitSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, wrap(OpSplit, "cancelled", err)
	}

	sourcePath, err := d.SourceFile()
	if err != nil {
		return nil, nil, err
	}
	fileName := filepath.Base(sourcePath)

	frame, err := dataset.ReadCSV(sourcePath)
	if err != nil {
		return nil, nil, wrap(OpSplit, "failed to read source table", err)
	}
	if !frame.HasColumn(d.sourceColumn) {
		return nil, nil, wrap(OpSplit, fmt.Sprintf("%s has no %q column", fileName, d.sourceColumn), ErrMissingColumn)
	}

	values, err := frame.FloatColumn(d.sourceColumn)
	if err != nil {
		return nil, nil, wrap(OpSplit, "failed to parse stratification column", err)
	}
	strata, err := split.Cut(values, d.bins, d.labels)
	if err != nil {
		return nil, nil, wrap(OpSplit, "failed to bucket stratification column", err)
	}
	if err := frame.AddColumn(d.strataColumn, strata); err != nil {
		return nil, nil, wrap(OpSplit, "failed to add strata column", err)
	}

	trainRows, testRows, err := d.splitter.Split(strata)
	if err != nil {
		return nil, nil, wrap(OpSplit, "stratified split failed", err)
	}

	trainSet := frame.Take(trainRows)
	testSet := frame.Take(testRows)
	for _, subset := range []*dataset.Frame{trainSet, testSet} {
		if err := subset.DropColumn(d.strataColumn); err != nil {
			return nil, nil, wrap(OpSplit, "failed to drop strata column", err)
		}
	}

	trainPath, err := d.writeSubset(trainSet, d.config.IngestedTrainDir, fileName, "training")
	if err != nil {
		return nil, nil, err
	}
	testPath, err := d.writeSubset(testSet, d.config.IngestedTestDir, fileName, "test")
	if err != nil {
		return nil, nil, err
	}

	artifact := &types.IngestionArtifact{
		TrainFilePath: trainPath,
		TestFilePath:  testPath,
		IsIngested:    true,
		Message:       CompletedMessage,
	}
	d.logger.Printf("Data ingestion artifact : [%+v]", *artifact)

	return artifact, summarize(fileName, strata, trainRows, testRows), nil
}

// writeSubset writes a non-empty subset to dir/fileName. An empty subset is
// not written and the directory itself is returned in place of a file path.
func (d *DataIngestion) writeSubset(subset *dataset.Frame, dir, fileName, kind string) (string, error) {
	if subset.Len() == 0 {
		d.logger.Printf("No rows in %s dataset, skipping export to [%s]", kind, dir)
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", wrap(OpSplit, fmt.Sprintf("failed to create %s", dir), err)
	}

	path := filepath.Join(dir, fileName)
	d.logger.Printf("Exporting %s dataset to file: [%s]", kind, path)
	if err := subset.WriteCSV(path); err != nil {
		return "", wrap(OpSplit, fmt.Sprintf("failed to export %s dataset", kind), err)
	}
	return path, nil
}

func summarize(fileName string, strata []string, trainRows, testRows []int) *types.SplitSummary {
	summary := &types.SplitSummary{
		SourceFile: fileName,
		TotalRows:  len(strata),
		TrainRows:  len(trainRows),
		TestRows:   len(testRows),
		Strata:     make(map[string]types.StratumCount),
	}
	trainCounts := split.CountByLabel(strata, trainRows)
	testCounts := split.CountByLabel(strata, testRows)
	for _, label := range strata {
		summary.Strata[label] = types.StratumCount{Train: trainCounts[label], Test: testCounts[label]}
	}
	return summary
}
