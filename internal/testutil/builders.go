package testutil

import (
	"encoding/json"
	"time"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

// IngestRequestBuilder builds IngestTestRunRequest values with sensible defaults.
type IngestRequestBuilder struct {
	req model.IngestTestRunRequest
}

// NewIngestRequest starts a QUEUED run of the "smoke" suite for agent "agent-1".
func NewIngestRequest() *IngestRequestBuilder {
	return &IngestRequestBuilder{req: model.IngestTestRunRequest{
		AgentName: "agent-1",
		Suite:     "smoke",
		Status:    model.TestRunStatusQueued,
	}}
}

// WithAgent sets the reporting agent's name and model.
func (b *IngestRequestBuilder) WithAgent(name, agentModel string) *IngestRequestBuilder {
	b.req.AgentName, b.req.AgentModel = name, agentModel
	return b
}

// WithSuite sets the suite name.
func (b *IngestRequestBuilder) WithSuite(suite string) *IngestRequestBuilder {
	b.req.Suite = suite
	return b
}

// WithStatus sets the run status.
func (b *IngestRequestBuilder) WithStatus(s model.TestRunStatus) *IngestRequestBuilder {
	b.req.Status = s
	return b
}

// WithStartedAt sets the start time.
func (b *IngestRequestBuilder) WithStartedAt(t time.Time) *IngestRequestBuilder {
	b.req.StartedAt = &t
	return b
}

// WithReport sets the report document.
func (b *IngestRequestBuilder) WithReport(report string) *IngestRequestBuilder {
	b.req.Report = json.RawMessage(report)
	return b
}

// Build returns a copy of the request.
func (b *IngestRequestBuilder) Build() *model.IngestTestRunRequest {
	out := b.req
	return &out
}

// NewUserFixture returns a NewUser for the given role with a derived email.
func NewUserFixture(name string, role domainauth.Role) model.NewUser {
	return model.NewUser{
		Name:  name,
		Email: name + "@example.test",
		Role:  role,
	}
}
