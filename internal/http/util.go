package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParseLimitOffset parses limit/offset and clamps them with model.ClampPage.
func ParseLimitOffset(r *http.Request) (int, int) {
	return model.ClampPage(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
}

// splitCSV reads a repeated or comma-separated query parameter.
func splitCSV(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
