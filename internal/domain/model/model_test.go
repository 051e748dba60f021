package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	req := CreateUserRequest{Name: " Ada ", Email: " Ada@Example.COM ", Password: "correct-horse"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Ada", req.Name)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, domainauth.RoleViewer, req.Role)

	tests := []struct {
		name  string
		req   CreateUserRequest
		field string
	}{
		{"missing name", CreateUserRequest{Email: "a@example.com"}, "name"},
		{"bad email", CreateUserRequest{Name: "A", Email: "not-an-email"}, "email"},
		{"bad role", CreateUserRequest{Name: "A", Email: "a@example.com", Role: "OWNER"}, "role"},
		{"short password", CreateUserRequest{Name: "A", Email: "a@example.com", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestUpdateUserRoleRequest_Parse(t *testing.T) {
	role, err := UpdateUserRoleRequest{Role: "manager"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleManager, role)

	_, err = UpdateUserRoleRequest{Role: "owner"}.Parse()
	assert.True(t, apperrors.IsValidation(err))
}

func TestIngestTestRunRequest_Validate(t *testing.T) {
	req := IngestTestRunRequest{AgentName: " qa-bot ", Suite: "checkout", Status: "running"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "qa-bot", req.AgentName)
	assert.Equal(t, TestRunStatusRunning, req.Status)

	req = IngestTestRunRequest{AgentName: "qa-bot", Suite: "checkout"}
	require.NoError(t, req.Validate())
	assert.Equal(t, TestRunStatusQueued, req.Status)

	req = IngestTestRunRequest{AgentName: "qa-bot", Suite: "checkout", Report: json.RawMessage(`{"broken"`)}
	err := req.Validate()
	require.Error(t, err)
	assert.Equal(t, "report", apperrors.GetField(err))

	req = IngestTestRunRequest{AgentName: strings.Repeat("a", 129), Suite: "s"}
	assert.Error(t, req.Validate())

	req = IngestTestRunRequest{AgentName: "qa-bot", Suite: "s", Status: "DONE"}
	assert.Error(t, req.Validate())
}

func TestUpdateTestRunRequest_Validate(t *testing.T) {
	empty := UpdateTestRunRequest{}
	assert.Error(t, empty.Validate())

	status := TestRunStatus("passed")
	req := UpdateTestRunRequest{Status: &status}
	require.NoError(t, req.Validate())
	assert.Equal(t, TestRunStatusPassed, *req.Status)
}

func TestTestRunStatus_Active(t *testing.T) {
	assert.True(t, TestRunStatusQueued.Active())
	assert.True(t, TestRunStatusRunning.Active())
	assert.False(t, TestRunStatusPassed.Active())
	assert.False(t, TestRunStatusCancelled.Active())
}

func TestClampPage(t *testing.T) {
	limit, offset := ClampPage(0, -5)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = ClampPage(1000, 10)
	assert.Equal(t, 200, limit)
	assert.Equal(t, 10, offset)
}

func TestCreateAPIKeyRequest_Validate(t *testing.T) {
	req := CreateAPIKeyRequest{Name: "  ci agent "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "ci agent", req.Name)

	blank := CreateAPIKeyRequest{Name: "   "}
	assert.True(t, apperrors.IsValidation(blank.Validate()))
}
