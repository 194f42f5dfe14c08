package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/census-ingestion/internal/types"
)

// GetIngestionArtifactByRunID loads the ingestion artifact from database for a run
func (db *DB) GetIngestionArtifactByRunID(ctx context.Context, runID uuid.UUID) (*types.IngestionArtifact, error) {
	content, err := db.GetArtifact(ctx, runID, StepIngestionArtifact)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var artifact types.IngestionArtifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion artifact: %w", err)
	}
	return &artifact, nil
}

// GetSplitSummaryByRunID loads the split summary from database for a run
func (db *DB) GetSplitSummaryByRunID(ctx context.Context, runID uuid.UUID) (*types.SplitSummary, error) {
	content, err := db.GetArtifact(ctx, runID, StepSplitSummary)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var summary types.SplitSummary
	if err := json.Unmarshal(content, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal split summary: %w", err)
	}
	return &summary, nil
}
