package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/census-ingestion/internal/db"
	"github.com/jonathan/census-ingestion/internal/ingestion"
	"github.com/jonathan/census-ingestion/internal/pipeline"
	"github.com/jonathan/census-ingestion/internal/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RunResponse is returned by POST /runs and as the final stream event.
type RunResponse struct {
	RunID    string                   `json:"run_id,omitempty"`
	Status   string                   `json:"status"`
	Artifact *types.IngestionArtifact `json:"artifact,omitempty"`
	Summary  *types.SplitSummary      `json:"summary,omitempty"`
}

// FailureResponse describes a failed run.
type FailureResponse struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
}

func newRunResponse(result *pipeline.Result) RunResponse {
	resp := RunResponse{
		Status:   db.RunStatusCompleted,
		Artifact: result.Artifact,
		Summary:  result.Summary,
	}
	if result.RunID != uuid.Nil {
		resp.RunID = result.RunID.String()
	}
	return resp
}

func newFailureResponse(err error) FailureResponse {
	resp := FailureResponse{Error: err.Error()}
	var ingErr *ingestion.Error
	if errors.As(err, &ingErr) {
		resp.Step = ingErr.Op
	}
	return resp
}

// handleRun runs one ingestion synchronously and returns its artifact.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		s.errorResponse(w, http.StatusConflict, "An ingestion run is already in progress")
		return
	}
	defer s.running.Unlock()

	result, err := s.run(r.Context(), nil)
	if err != nil {
		log.Printf("Ingestion run failed: %v", err)
		s.jsonResponse(w, http.StatusBadGateway, newFailureResponse(err))
		return
	}

	s.jsonResponse(w, http.StatusOK, newRunResponse(result))
}

// handleRunStream runs one ingestion and streams progress events via SSE.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		s.errorResponse(w, http.StatusConflict, "An ingestion run is already in progress")
		return
	}
	defer s.running.Unlock()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.run(r.Context(), func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("step", event); err != nil {
			log.Printf("Error writing SSE event: %v", err)
		}
	})
	if err != nil {
		log.Printf("Streaming ingestion run failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	sse.WriteComplete(newRunResponse(result))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Run history requires a database")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runIDParam(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleGetArtifact returns the stored JSON for one step of a run.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runIDParam(w, r)
	if !ok {
		return
	}

	step := r.PathValue("step")
	switch step {
	case db.StepIngestionArtifact:
		artifact, err := s.store.GetIngestionArtifactByRunID(r.Context(), runID)
		s.typedArtifactResponse(w, artifact, artifact == nil, err)
		return
	case db.StepSplitSummary:
		summary, err := s.store.GetSplitSummaryByRunID(r.Context(), runID)
		s.typedArtifactResponse(w, summary, summary == nil, err)
		return
	case db.StepDownload, db.StepExtract:
	default:
		s.errorResponse(w, http.StatusBadRequest, "Unknown artifact step: "+step)
		return
	}

	content, err := s.store.GetArtifact(r.Context(), runID, step)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if content == nil {
		s.errorResponse(w, http.StatusNotFound, "Artifact not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		log.Printf("Error writing artifact response: %v", err)
	}
}

// typedArtifactResponse writes a decoded artifact. A stored row that does not
// decode into its type surfaces as a 500 through err.
func (s *Server) typedArtifactResponse(w http.ResponseWriter, v any, missing bool, err error) {
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if missing {
		s.errorResponse(w, http.StatusNotFound, "Artifact not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, v)
}

// runIDParam parses the {id} path value, writing the error response itself on failure.
func (s *Server) runIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if s.store == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Run history requires a database")
		return uuid.Nil, false
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}
