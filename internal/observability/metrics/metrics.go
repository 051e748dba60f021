// Package metrics names and tags the service's StatsD metrics in one place.
package metrics

import (
	"time"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
)

// Result tag values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// EmitGateDecision counts one route guard outcome ("pass", "asset",
// "api", "redirect_dashboard", "redirect_login").
func EmitGateDecision(sink statsd.Sink, outcome string, authenticated bool) {
	if sink == nil {
		return
	}
	auth := "false"
	if authenticated {
		auth = "true"
	}
	sink.Count("gate.decision", 1, map[string]string{"outcome": outcome, "authenticated": auth})
}

// EmitSignIn counts a sign-in attempt. method is "credentials" or "sso".
func EmitSignIn(sink statsd.Sink, method string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"method": method, "result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultFailure
		if code := apperrors.GetCode(err); code != "" {
			tags["error_code"] = string(code)
		}
	}
	sink.Count("auth.sign_in", 1, tags)
}

// EmitHTTPRequest records latency and status class for a served request.
func EmitHTTPRequest(sink statsd.Sink, method string, status int, d time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"method": method, "status_class": statusClass(status)}
	sink.Count("http.request", 1, tags)
	sink.Timing("http.request.duration", d, tags)
}

// EmitAgentReap records one pass of the stale-agent sweep.
func EmitAgentReap(sink statsd.Sink, marked int64, d time.Duration, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
	}
	sink.Count("agents.marked_offline", marked, tags)
	sink.Timing("agents.reap.duration", d, tags)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
