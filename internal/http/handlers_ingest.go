package httpx

import (
	"log/slog"
	"net/http"

	"github.com/agentqa/qa-dashboard/internal/data"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

// IngestHandlers accept run reports from agents authenticated by API key.
type IngestHandlers struct {
	TestRuns TestRunService
	Logger   *slog.Logger
}

// Create records a new run.
func (h *IngestHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.IngestTestRunRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	run, err := h.TestRuns.Ingest(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if key, ok := APIKeyFromContext(r.Context()); ok {
		h.Logger.InfoContext(r.Context(), "test run ingested",
			"test_run_id", run.ID, "agent_id", run.AgentID, "api_key_id", key.ID)
	}
	WriteSuccess(w, http.StatusCreated, map[string]any{"test_run": run})
}

// Update progresses an existing run.
func (h *IngestHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrTestRunNotFound)
	if !ok {
		return
	}
	var req model.UpdateTestRunRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	run, err := h.TestRuns.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"test_run": run})
}
