package data

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/agentqa/qa-dashboard/internal/migrate"
)

// RunMigrations brings the schema up to date and logs what was applied.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	res, err := migrate.Run(ctx, db)
	if err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "schema up to date",
		"applied", len(res.Applied), "already_applied", len(res.Skipped))
	return nil
}
