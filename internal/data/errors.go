package data

import (
	"errors"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

// Not-found sentinels. They are AppErrors so handlers can surface the
// message directly ("Agent not found") and errors.Is still matches.
var (
	ErrUserNotFound    = apperrors.NotFound("User not found")
	ErrAgentNotFound   = apperrors.NotFound("Agent not found")
	ErrTestRunNotFound = apperrors.NotFound("Test run not found")
	ErrAPIKeyNotFound  = apperrors.NotFound("API key not found")

	// ErrEmailExists is returned when creating a user whose email is taken.
	ErrEmailExists = apperrors.Conflict("A user with this email already exists")
)

// mapErr converts pgx.ErrNoRows into notFound and everything else via MapDBError.
func mapErr(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return apperrors.MapDBError(err)
}
