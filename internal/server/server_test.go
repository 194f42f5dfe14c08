package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/census-ingestion/internal/db"
	"github.com/jonathan/census-ingestion/internal/ingestion"
	"github.com/jonathan/census-ingestion/internal/pipeline"
	"github.com/jonathan/census-ingestion/internal/types"
)

// fakeStore is an in-memory Store for handler tests
type fakeStore struct {
	runs      map[uuid.UUID]*db.Run
	artifacts map[uuid.UUID]map[string][]byte
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:      make(map[uuid.UUID]*db.Run),
		artifacts: make(map[uuid.UUID]map[string][]byte),
	}
}

func (f *fakeStore) GetRun(_ context.Context, runID uuid.UUID) (*db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[runID], nil
}

func (f *fakeStore) ListRuns(_ context.Context, limit int) ([]db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	var runs []db.Run
	for _, run := range f.runs {
		if len(runs) == limit {
			break
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (f *fakeStore) GetArtifact(_ context.Context, runID uuid.UUID, step string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.artifacts[runID][step], nil
}

func (f *fakeStore) GetIngestionArtifactByRunID(ctx context.Context, runID uuid.UUID) (*types.IngestionArtifact, error) {
	var artifact types.IngestionArtifact
	found, err := f.decode(ctx, runID, db.StepIngestionArtifact, &artifact)
	if !found {
		return nil, err
	}
	return &artifact, nil
}

func (f *fakeStore) GetSplitSummaryByRunID(ctx context.Context, runID uuid.UUID) (*types.SplitSummary, error) {
	var summary types.SplitSummary
	found, err := f.decode(ctx, runID, db.StepSplitSummary, &summary)
	if !found {
		return nil, err
	}
	return &summary, nil
}

// decode mirrors the typed loaders in internal/db.
func (f *fakeStore) decode(ctx context.Context, runID uuid.UUID, step string, v any) (bool, error) {
	content, err := f.GetArtifact(ctx, runID, step)
	if err != nil || content == nil {
		return false, err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", step, err)
	}
	return true, nil
}

func (f *fakeStore) addRun(status string) uuid.UUID {
	id := uuid.New()
	f.runs[id] = &db.Run{ID: id, DatasetURL: "https://example.com/housing.tgz", Status: status, CreatedAt: time.Now()}
	return id
}

func successfulRun(runID uuid.UUID) RunFunc {
	return func(_ context.Context, onProgress pipeline.ProgressCallback) (*pipeline.Result, error) {
		if onProgress != nil {
			onProgress(pipeline.ProgressEvent{Step: db.StepDownload, Category: db.CategoryIngestion, Message: "Downloaded"})
		}
		return &pipeline.Result{
			RunID: runID,
			Artifact: &types.IngestionArtifact{
				TrainFilePath: "/data/train/housing.csv",
				TestFilePath:  "/data/test/housing.csv",
				IsIngested:    true,
				Message:       ingestion.CompletedMessage,
			},
			Summary: &types.SplitSummary{TotalRows: 10, TrainRows: 8, TestRows: 2},
		}, nil
	}
}

func newTestServer(t *testing.T, store Store, run RunFunc) *Server {
	t.Helper()
	s, err := New(Config{Port: 0, Store: store, Run: run})
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestNew_RequiresRunFunc(t *testing.T) {
	_, err := New(Config{Port: 8080})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil, successfulRun(uuid.Nil))

	w := serve(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, successfulRun(uuid.Nil))

	w := serve(s, http.MethodOptions, "/runs")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestHandleRun_Success(t *testing.T) {
	runID := uuid.New()
	s := newTestServer(t, nil, successfulRun(runID))

	w := serve(s, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, runID.String(), resp.RunID)
	assert.Equal(t, db.RunStatusCompleted, resp.Status)
	require.NotNil(t, resp.Artifact)
	assert.True(t, resp.Artifact.IsIngested)
	assert.Equal(t, 8, resp.Summary.TrainRows)
}

func TestHandleRun_NoRunIDWithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil, successfulRun(uuid.Nil))

	w := serve(s, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "run_id")
}

func TestHandleRun_FailureReportsStep(t *testing.T) {
	s := newTestServer(t, nil, func(context.Context, pipeline.ProgressCallback) (*pipeline.Result, error) {
		return nil, &ingestion.Error{Op: ingestion.OpDownload, Message: "download failed", Cause: errors.New("connection refused")}
	})

	w := serve(s, http.MethodPost, "/runs")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp FailureResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ingestion.OpDownload, resp.Step)
	assert.Contains(t, resp.Error, "connection refused")
}

func TestHandleRun_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := newTestServer(t, nil, func(ctx context.Context, cb pipeline.ProgressCallback) (*pipeline.Result, error) {
		close(started)
		<-release
		return successfulRun(uuid.Nil)(ctx, cb)
	})

	done := make(chan int, 1)
	go func() {
		done <- serve(s, http.MethodPost, "/runs").Code
	}()
	<-started

	w := serve(s, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestHandleRunStream(t *testing.T) {
	s := newTestServer(t, nil, successfulRun(uuid.New()))

	w := serve(s, http.MethodPost, "/runs/stream")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: step\n")
	assert.Contains(t, body, `"message":"Downloaded"`)
	assert.Contains(t, body, "event: complete\n")
	assert.Less(t, strings.Index(body, "event: step"), strings.Index(body, "event: complete"))
}

func TestHandleRunStream_Error(t *testing.T) {
	s := newTestServer(t, nil, func(context.Context, pipeline.ProgressCallback) (*pipeline.Result, error) {
		return nil, errors.New("boom")
	})

	w := serve(s, http.MethodPost, "/runs/stream")
	assert.Contains(t, w.Body.String(), "event: error\n")
	assert.Contains(t, w.Body.String(), "boom")
}

func TestRunHistory_WithoutDatabase(t *testing.T) {
	s := newTestServer(t, nil, successfulRun(uuid.Nil))

	for _, target := range []string{"/runs", "/runs/" + uuid.NewString(), "/runs/" + uuid.NewString() + "/artifacts/download"} {
		w := serve(s, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}

func TestHandleListRuns(t *testing.T) {
	store := newFakeStore()
	store.addRun(db.RunStatusCompleted)
	store.addRun(db.RunStatusFailed)
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{name: "default limit", target: "/runs", wantStatus: http.StatusOK, wantCount: 2},
		{name: "explicit limit", target: "/runs?limit=1", wantStatus: http.StatusOK, wantCount: 1},
		{name: "invalid limit", target: "/runs?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", target: "/runs?limit=0", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, http.MethodGet, tt.target)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Runs  []db.Run `json:"runs"`
				Count int      `json:"count"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.Len(t, resp.Runs, tt.wantCount)
		})
	}
}

func TestHandleListRuns_Empty(t *testing.T) {
	s := newTestServer(t, newFakeStore(), successfulRun(uuid.Nil))

	w := serve(s, http.MethodGet, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[],"count":0}`, w.Body.String())
}

func TestHandleGetRun(t *testing.T) {
	store := newFakeStore()
	runID := store.addRun(db.RunStatusCompleted)
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	t.Run("found", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/"+runID.String())
		require.Equal(t, http.StatusOK, w.Code)

		var run db.Run
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, runID, run.ID)
		assert.Equal(t, db.RunStatusCompleted, run.Status)
	})

	t.Run("not found", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetRun_DatabaseError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection reset")
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	w := serve(s, http.MethodGet, "/runs/"+uuid.NewString())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "connection reset")
}

func TestHandleGetArtifact(t *testing.T) {
	store := newFakeStore()
	runID := store.addRun(db.RunStatusCompleted)
	store.artifacts[runID] = map[string][]byte{
		db.StepIngestionArtifact: []byte(`{"train_file_path":"/a","test_file_path":"/b","is_ingested":true,"message":"ok"}`),
	}
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	t.Run("stored artifact", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/"+db.StepIngestionArtifact)
		require.Equal(t, http.StatusOK, w.Code)

		var artifact types.IngestionArtifact
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &artifact))
		assert.True(t, artifact.IsIngested)
		assert.Equal(t, "/a", artifact.TrainFilePath)
	})

	t.Run("missing artifact", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/"+db.StepSplitSummary)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("raw step record", func(t *testing.T) {
		store.artifacts[runID][db.StepDownload] = []byte(`{"url":"https://example.com/housing.tgz","sha256":"abc"}`)
		w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/"+db.StepDownload)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sha256":"abc"`)
	})

	t.Run("unknown step", func(t *testing.T) {
		w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/resume")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetArtifact_SplitSummary(t *testing.T) {
	store := newFakeStore()
	runID := store.addRun(db.RunStatusCompleted)
	store.artifacts[runID] = map[string][]byte{
		db.StepSplitSummary: []byte(`{"source_file":"housing.csv","total_rows":10,"train_rows":8,"test_rows":2,"strata":{"3":{"train":8,"test":2}}}`),
	}
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/"+db.StepSplitSummary)
	require.Equal(t, http.StatusOK, w.Code)

	var summary types.SplitSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 8, summary.TrainRows)
	assert.Equal(t, types.StratumCount{Train: 8, Test: 2}, summary.Strata["3"])
}

func TestHandleGetArtifact_MalformedRecordIsServerError(t *testing.T) {
	store := newFakeStore()
	runID := store.addRun(db.RunStatusCompleted)
	store.artifacts[runID] = map[string][]byte{
		db.StepIngestionArtifact: []byte(`{"is_ingested":"yes"}`),
		db.StepSplitSummary:      []byte(`["not","an","object"]`),
	}
	s := newTestServer(t, store, successfulRun(uuid.Nil))

	for _, step := range []string{db.StepIngestionArtifact, db.StepSplitSummary} {
		w := serve(s, http.MethodGet, "/runs/"+runID.String()+"/artifacts/"+step)
		assert.Equal(t, http.StatusInternalServerError, w.Code, step)
		assert.Contains(t, w.Body.String(), "failed to unmarshal", step)
	}
}
