package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode names a long-running component the binary can start.
type ServiceMode string

const (
	// ServiceModeHTTP runs the dashboard HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeAgentReaper marks agents that stopped reporting as OFFLINE.
	ServiceModeAgentReaper ServiceMode = "agent-reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeAgentReaper}
}

// ParseServices parses a comma-delimited list of service names.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)
	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		mode := ServiceMode(name)
		switch mode {
		case ServiceModeHTTP, ServiceModeAgentReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, agent-reaper)", name)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// AgentReaperConfig controls the stale-agent sweep.
type AgentReaperConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"AGENT_REAPER_INTERVAL" envDefault:"1m"`

	// OfflineAfter is how long an agent may go unseen before it is marked OFFLINE.
	OfflineAfter time.Duration `env:"AGENT_OFFLINE_AFTER" envDefault:"10m"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *AgentReaperConfig) Sanitize() {
	if r.Interval < 10*time.Second {
		r.Interval = 10 * time.Second
	}
	if r.OfflineAfter < time.Minute {
		r.OfflineAfter = time.Minute
	}
}
