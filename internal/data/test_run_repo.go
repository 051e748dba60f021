package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/data/pgxutil"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const testRunColumns = `id, agent_id, suite, status, started_at, finished_at, report, created_at`

// TestRunRepo provides database operations for QA runs.
type TestRunRepo struct {
	DB *sql.DB
}

// NewTestRunRepo creates a new TestRunRepo.
func NewTestRunRepo(db *sql.DB) *TestRunRepo {
	return &TestRunRepo{DB: db}
}

// Create records a new run for agentID.
func (r *TestRunRepo) Create(
	ctx context.Context,
	agentID string,
	req *model.IngestTestRunRequest,
) (*model.TestRun, error) {
	if req == nil {
		return nil, apperrors.Validation("test run request is required")
	}
	report := []byte("{}")
	if len(req.Report) > 0 {
		report = req.Report
	}
	out, err := pgxutil.QueryOne[model.TestRun](ctx, r.DB, `
		INSERT INTO test_runs (agent_id, suite, status, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+testRunColumns,
		agentID, req.Suite, string(req.Status), req.StartedAt, req.FinishedAt, string(report),
	)
	if err != nil {
		return nil, fmt.Errorf("create test run: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID retrieves a run, including its report.
func (r *TestRunRepo) GetByID(ctx context.Context, id string) (*model.TestRun, error) {
	out, err := pgxutil.QueryOne[model.TestRun](ctx, r.DB,
		`SELECT `+testRunColumns+` FROM test_runs WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err, ErrTestRunNotFound)
	}
	return out, nil
}

// List retrieves runs newest first, filtered by opts.
func (r *TestRunRepo) List(ctx context.Context, opts model.TestRunListOptions) ([]*model.TestRun, error) {
	opts.Normalize()

	var (
		where []string
		args  []any
	)
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if opts.AgentID != nil {
		args = append(args, *opts.AgentID)
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + testRunColumns + ` FROM test_runs`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, opts.Limit, opts.Offset)
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	out, err := pgxutil.QueryAll[model.TestRun](ctx, r.DB, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list test runs: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Update applies the non-nil fields of req to a run.
func (r *TestRunRepo) Update(
	ctx context.Context,
	id string,
	req *model.UpdateTestRunRequest,
) (*model.TestRun, error) {
	if req == nil || !req.HasUpdates() {
		return nil, apperrors.Validation("at least one field must be updated")
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if req.Status != nil {
		add("status", string(*req.Status))
	}
	if req.StartedAt != nil {
		add("started_at", *req.StartedAt)
	}
	if req.FinishedAt != nil {
		add("finished_at", *req.FinishedAt)
	}
	if len(req.Report) > 0 {
		args = append(args, string(req.Report))
		sets = append(sets, fmt.Sprintf("report = $%d::jsonb", len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE test_runs SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), testRunColumns)

	out, err := pgxutil.QueryOne[model.TestRun](ctx, r.DB, query, args...)
	if err != nil {
		return nil, mapErr(err, ErrTestRunNotFound)
	}
	return out, nil
}
