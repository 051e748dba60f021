//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const (
	maxSuiteLen      = 255
	maxAgentNameLen  = 128
	maxReportBytes   = 1 << 20
	defaultListLimit = 50
	maxListLimit     = 200
)

// TestRunStatus is the lifecycle state of a QA run.
type TestRunStatus string

const (
	TestRunStatusQueued    TestRunStatus = "QUEUED"
	TestRunStatusRunning   TestRunStatus = "RUNNING"
	TestRunStatusPassed    TestRunStatus = "PASSED"
	TestRunStatusFailed    TestRunStatus = "FAILED"
	TestRunStatusCancelled TestRunStatus = "CANCELLED"
)

// Valid reports whether the status is supported.
func (s TestRunStatus) Valid() bool {
	switch s {
	case TestRunStatusQueued, TestRunStatusRunning, TestRunStatusPassed, TestRunStatusFailed, TestRunStatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether a run with this status is still in flight.
func (s TestRunStatus) Active() bool {
	return s == TestRunStatusQueued || s == TestRunStatusRunning
}

// ParseTestRunStatus normalizes a status string and reports whether it is supported.
func ParseTestRunStatus(value string) (TestRunStatus, bool) {
	s := TestRunStatus(strings.ToUpper(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// TestRun is one execution of a QA suite by an agent.
type TestRun struct {
	ID         string          `json:"id"                    db:"id"`
	AgentID    string          `json:"agent_id"              db:"agent_id"`
	Suite      string          `json:"suite"                 db:"suite"`
	Status     TestRunStatus   `json:"status"                db:"status"`
	StartedAt  *time.Time      `json:"started_at,omitempty"  db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
	Report     json.RawMessage `json:"-"                     db:"report"`
	CreatedAt  time.Time       `json:"created_at"            db:"created_at"`
}

// TestRunListOptions controls paging and filtering for listing runs.
type TestRunListOptions struct {
	Limit    int
	Offset   int
	Statuses []TestRunStatus
	AgentID  *string
}

// Normalize clamps paging values into the supported range.
func (o *TestRunListOptions) Normalize() {
	o.Limit, o.Offset = ClampPage(o.Limit, o.Offset)
}

// ClampPage applies the default and maximum page size and floors the offset at zero.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, max(offset, 0)
}

// IngestTestRunRequest is submitted by an agent to record a new run.
// The agent is matched by name and registered on first contact.
type IngestTestRunRequest struct {
	AgentName  string          `json:"agent_name"`
	AgentModel string          `json:"agent_model,omitempty"`
	Suite      string          `json:"suite"`
	Status     TestRunStatus   `json:"status,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Report     json.RawMessage `json:"report,omitempty"`
}

// Validate normalizes and validates IngestTestRunRequest.
func (r *IngestTestRunRequest) Validate() error {
	r.AgentName = strings.TrimSpace(r.AgentName)
	if r.AgentName == "" {
		return apperrors.ValidationField("agent_name", "agent_name is required")
	}
	if utf8.RuneCountInString(r.AgentName) > maxAgentNameLen {
		return apperrors.ValidationField("agent_name", "agent_name cannot exceed 128 characters")
	}
	r.AgentModel = strings.TrimSpace(r.AgentModel)
	r.Suite = strings.TrimSpace(r.Suite)
	if r.Suite == "" {
		return apperrors.ValidationField("suite", "suite is required")
	}
	if utf8.RuneCountInString(r.Suite) > maxSuiteLen {
		return apperrors.ValidationField("suite", "suite cannot exceed 255 characters")
	}
	if r.Status == "" {
		r.Status = TestRunStatusQueued
	}
	status, ok := ParseTestRunStatus(string(r.Status))
	if !ok {
		return apperrors.ValidationField("status", "invalid status")
	}
	r.Status = status
	return validateReport(r.Report)
}

// UpdateTestRunRequest is submitted by an agent to progress a run.
type UpdateTestRunRequest struct {
	Status     *TestRunStatus  `json:"status,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Report     json.RawMessage `json:"report,omitempty"`
}

// HasUpdates reports whether any field is set.
func (r *UpdateTestRunRequest) HasUpdates() bool {
	return r.Status != nil || r.StartedAt != nil || r.FinishedAt != nil || len(r.Report) > 0
}

// Validate validates UpdateTestRunRequest.
func (r *UpdateTestRunRequest) Validate() error {
	if !r.HasUpdates() {
		return apperrors.Validation("at least one field must be updated")
	}
	if r.Status != nil {
		status, ok := ParseTestRunStatus(string(*r.Status))
		if !ok {
			return apperrors.ValidationField("status", "invalid status")
		}
		*r.Status = status
	}
	return validateReport(r.Report)
}

func validateReport(report json.RawMessage) error {
	if len(report) == 0 {
		return nil
	}
	if len(report) > maxReportBytes {
		return apperrors.ValidationField("report", "report exceeds 1MiB")
	}
	if !json.Valid(report) {
		return apperrors.ValidationField("report", "report must be valid JSON")
	}
	return nil
}

// ActiveSnapshot is the dashboard's view of in-flight work.
type ActiveSnapshot struct {
	Runs        []*TestRun `json:"runs"`
	Agents      []*Agent   `json:"agents"`
	GeneratedAt time.Time  `json:"generated_at"`
}
