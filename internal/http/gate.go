package httpx

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/agentqa/qa-dashboard/internal/observability/metrics"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
)

// Gate paths.
const (
	apiPrefix     = "/api/"
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// RouteClass is the gate's view of a request path.
type RouteClass int

const (
	RouteProtected RouteClass = iota
	RoutePublic
	RouteAPI
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAPI:
		return "api"
	default:
		return "protected"
	}
}

var publicPaths = map[string]struct{}{
	loginPath: {},
}

var assetPrefixes = []string{"/static/", "/images/"}

var imageExtensions = map[string]struct{}{
	".svg":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// IsStaticAsset reports whether p is served without any gate logic.
func IsStaticAsset(p string) bool {
	if p == "/favicon.ico" {
		return true
	}
	for _, prefix := range assetPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Classify maps a non-asset path onto its route class.
func Classify(p string) RouteClass {
	if strings.HasPrefix(p, apiPrefix) {
		return RouteAPI
	}
	if _, ok := publicPaths[p]; ok {
		return RoutePublic
	}
	return RouteProtected
}

// Decision is what the guard does with a request.
type Decision struct {
	// Redirect is empty when the request continues unmodified.
	Redirect string
}

// Continue reports whether the request should reach the router.
func (d Decision) Continue() bool { return d.Redirect == "" }

// Decide is the guard's pure decision function for a classified page request.
func Decide(class RouteClass, authenticated bool) Decision {
	switch {
	case class == RouteAPI:
		return Decision{}
	case class == RoutePublic && authenticated:
		return Decision{Redirect: dashboardPath}
	case class == RouteProtected && !authenticated:
		return Decision{Redirect: loginPath}
	default:
		return Decision{}
	}
}

// GuardOptions groups dependencies for RouteGuard.
type GuardOptions struct {
	Resolver *SessionResolver // Required
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// RouteGuard redirects page requests based on session state. Static assets
// and API routes pass through; API handlers authorize themselves.
func RouteGuard(opts GuardOptions) func(http.Handler) http.Handler {
	if opts.Resolver == nil {
		panic("SessionResolver is required for RouteGuard")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "route_guard")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsStaticAsset(r.URL.Path) {
				metrics.EmitGateDecision(opts.Metrics, "asset", false)
				next.ServeHTTP(w, r)
				return
			}

			class := Classify(r.URL.Path)
			if class == RouteAPI {
				metrics.EmitGateDecision(opts.Metrics, "api", false)
				next.ServeHTTP(w, r)
				return
			}

			r, _, authenticated := opts.Resolver.Attach(r)
			decision := Decide(class, authenticated)
			if !decision.Continue() {
				outcome := "redirect_login"
				if decision.Redirect == dashboardPath {
					outcome = "redirect_dashboard"
				}
				metrics.EmitGateDecision(opts.Metrics, outcome, authenticated)
				logger.DebugContext(r.Context(), "redirecting page request",
					"path", r.URL.Path, "class", class.String(), "location", decision.Redirect)
				http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
				return
			}

			metrics.EmitGateDecision(opts.Metrics, "pass", authenticated)
			next.ServeHTTP(w, r)
		})
	}
}
