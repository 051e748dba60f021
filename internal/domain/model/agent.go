//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// AgentStatus is the last reported state of an AI agent.
type AgentStatus string

const (
	AgentStatusIdle    AgentStatus = "IDLE"
	AgentStatusRunning AgentStatus = "RUNNING"
	AgentStatusOffline AgentStatus = "OFFLINE"
)

// Valid reports whether the agent status is supported.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusRunning, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// Agent is an AI agent that executes QA runs.
type Agent struct {
	ID         string      `json:"id"                     db:"id"`
	Name       string      `json:"name"                   db:"name"`
	Model      string      `json:"model"                  db:"model"`
	Status     AgentStatus `json:"status"                 db:"status"`
	LastSeenAt *time.Time  `json:"last_seen_at,omitempty" db:"last_seen_at"`
	CreatedAt  time.Time   `json:"created_at"             db:"created_at"`
}

// AgentDetail is an agent together with its most recent runs.
type AgentDetail struct {
	Agent      *Agent     `json:"agent"`
	RecentRuns []*TestRun `json:"recent_runs"`
}
