package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	if !IsAppError(MapDBError(context.DeadlineExceeded), ErrCodeTimeout) {
		t.Error("deadline exceeded should map to timeout")
	}
	if !IsAppError(MapDBError(fmt.Errorf("query: %w", context.Canceled)), ErrCodeCanceled) {
		t.Error("wrapped cancel should map to canceled")
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	if !IsNotFound(err) {
		t.Errorf("MapDBError(pgx.ErrNoRows) should be NotFound, got %v", GetCode(err))
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Error("cause should be preserved")
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name:      "column metadata",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "name"},
			wantField: "name",
		},
		{
			name:      "detail message",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (email)=(a@example.com) already exists."},
			wantField: "email",
		},
		{
			name:      "constraint name",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "agents_name_key"},
			wantField: "name",
		},
		{
			name:      "ambiguous constraint",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "api_keys_key_hash_key"},
			wantField: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsConflict(err) {
				t.Fatalf("expected conflict, got %v", GetCode(err))
			}
			if got := GetField(err); got != tt.wantField {
				t.Errorf("field = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	err := MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (id)=(1) is still referenced from table "test_runs".`,
	})
	if !IsForeignKey(err) {
		t.Fatalf("expected foreign key, got %v", GetCode(err))
	}
	if got := PublicMessage(err); got != "Cannot delete because this item is in use by Test run." {
		t.Errorf("unexpected message %q", got)
	}

	err = MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (agent_id)=(x) is not present in table "agents".`,
	})
	if got := PublicMessage(err); got != "Cannot complete operation because the referenced Agent does not exist." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestMapDBError_CheckAndNotNull(t *testing.T) {
	if !IsValidation(MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "role"})) {
		t.Error("check violation should be validation")
	}
	if !IsValidation(MapDBError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})) {
		t.Error("not null violation should be validation")
	}
	if GetCode(MapDBError(&pgconn.PgError{Code: pgerrcode.DeadlockDetected})) != ErrCodeInternal {
		t.Error("unhandled pg errors should be internal")
	}
}

func TestMapDBError_Passthrough(t *testing.T) {
	orig := errors.New("boom")
	if got := MapDBError(orig); got != orig {
		t.Errorf("unrecognized error should pass through, got %v", got)
	}
}
