package httpx

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/agentqa/qa-dashboard/internal/data"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

// DashboardHandlers serves the read-only session-authenticated API.
type DashboardHandlers struct {
	Dashboard DashboardService
	Agents    AgentService
	TestRuns  TestRunService
	Logger    *slog.Logger
}

// Active returns in-flight runs and busy agents.
func (h *DashboardHandlers) Active(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dashboard.Active(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"runs":         nonNil(snap.Runs),
		"agents":       nonNil(snap.Agents),
		"generated_at": snap.GeneratedAt,
	})
}

// ListAgents pages through registered agents.
func (h *DashboardHandlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	agents, err := h.Agents.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"agents": nonNil(agents),
		"limit":  limit,
		"offset": offset,
	})
}

// GetAgent returns one agent and its recent runs.
func (h *DashboardHandlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrAgentNotFound)
	if !ok {
		return
	}
	detail, err := h.Agents.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"agent":       detail.Agent,
		"recent_runs": nonNil(detail.RecentRuns),
	})
}

// ListTestRuns pages through runs, optionally filtered by status and agent.
func (h *DashboardHandlers) ListTestRuns(w http.ResponseWriter, r *http.Request) {
	opts, err := testRunListOptions(r)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	runs, err := h.TestRuns.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"test_runs": nonNil(runs),
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// GetTestRun returns one run without its report.
func (h *DashboardHandlers) GetTestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrTestRunNotFound)
	if !ok {
		return
	}
	run, err := h.TestRuns.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"test_run": run})
}

// TestRunReport returns the run's report, projected by ?query= when given.
func (h *DashboardHandlers) TestRunReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrTestRunNotFound)
	if !ok {
		return
	}
	report, err := h.TestRuns.Report(r.Context(), id, r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"report": report})
}

func testRunListOptions(r *http.Request) (model.TestRunListOptions, error) {
	limit, offset := ParseLimitOffset(r)
	opts := model.TestRunListOptions{Limit: limit, Offset: offset}
	q := r.URL.Query()
	for _, raw := range splitCSV(q["status"]) {
		status, ok := model.ParseTestRunStatus(raw)
		if !ok {
			return opts, apperrors.ValidationField("status", "invalid status filter")
		}
		opts.Statuses = append(opts.Statuses, status)
	}
	if agentID := q.Get("agent_id"); agentID != "" {
		if _, err := uuid.Parse(agentID); err != nil {
			return opts, apperrors.ValidationField("agent_id", "agent_id must be a UUID")
		}
		opts.AgentID = &agentID
	}
	return opts, nil
}

// pathID reads {id}. Ids that are not UUIDs cannot exist, so they answer notFound.
func pathID(w http.ResponseWriter, r *http.Request, notFound error) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		WriteError(w, http.StatusNotFound, apperrors.PublicMessage(notFound))
		return "", false
	}
	return id, true
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
