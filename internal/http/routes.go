package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	qadash "github.com/agentqa/qa-dashboard"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

const defaultCookieName = "qadash_session"

// Paths used when IsDev serves assets from disk.
const (
	TemplatePathFromRoot = "frontend/templates"
	StaticPathFromRoot   = "frontend/static"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth      AuthService        // Required
	Sessions  ports.SessionCodec // Required
	APIKeys   APIKeyService      // Required
	Users     UserService        // Required
	Agents    AgentService       // Required
	TestRuns  TestRunService     // Required
	Dashboard DashboardService   // Required
	Cookies   CookieConfig
	Metrics   statsd.Sink

	// Optional overrides for embedded assets.
	TemplateFS fs.FS
	StaticFS   fs.FS

	IsDev  bool         // Serve templates and static files from disk
	Logger *slog.Logger // Logger for template and HTTP errors (optional)
}

// NewRouter builds the application handler: /healthz outside the gate,
// everything else behind the route guard.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")
	if services.Cookies.Name == "" {
		services.Cookies.Name = defaultCookieName
	}
	resolver := NewSessionResolver(services.Sessions, services.Cookies.Name)

	app := http.NewServeMux()
	registerAPIRoutes(app, services, resolver, logger)
	registerStaticRoutes(app, staticFS(services, logger))
	registerUIRoutes(app, setupUIHandlers(services, logger), services.Cookies)

	outer := http.NewServeMux()
	outer.HandleFunc("GET /healthz", healthHandler)
	outer.Handle("/", RouteGuard(GuardOptions{
		Resolver: resolver,
		Metrics:  services.Metrics,
		Logger:   logger,
	})(app))
	return outer
}

func registerAPIRoutes(mux *http.ServeMux, s RouterServices, resolver *SessionResolver, logger *slog.Logger) {
	session := RequireSession(resolver)
	admin := RequireAdmin(resolver)
	apiKey := RequireAPIKey(s.APIKeys, logger)

	auth := &AuthHandlers{Svc: s.Auth, Resolver: resolver, Cookies: s.Cookies, Logger: logger}
	mux.HandleFunc("POST /api/auth/login", auth.APILogin)
	mux.HandleFunc("POST /api/auth/logout", auth.APILogout)
	mux.HandleFunc("GET /api/auth/session", auth.Session)
	mux.HandleFunc("GET /api/auth/sso/login", auth.SSOLogin)
	mux.HandleFunc("GET "+ssoCallbackPath, auth.SSOCallback)

	dash := &DashboardHandlers{Dashboard: s.Dashboard, Agents: s.Agents, TestRuns: s.TestRuns, Logger: logger}
	mux.Handle("GET /api/dashboard/active", session(http.HandlerFunc(dash.Active)))
	mux.Handle("GET /api/agents", session(http.HandlerFunc(dash.ListAgents)))
	mux.Handle("GET /api/agents/{id}", session(http.HandlerFunc(dash.GetAgent)))
	mux.Handle("GET /api/test-runs", session(http.HandlerFunc(dash.ListTestRuns)))
	mux.Handle("GET /api/test-runs/{id}", session(http.HandlerFunc(dash.GetTestRun)))
	mux.Handle("GET /api/test-runs/{id}/report", session(http.HandlerFunc(dash.TestRunReport)))

	ingest := &IngestHandlers{TestRuns: s.TestRuns, Logger: logger}
	mux.Handle("POST /api/ingest/test-runs", apiKey(http.HandlerFunc(ingest.Create)))
	mux.Handle("PATCH /api/ingest/test-runs/{id}", apiKey(http.HandlerFunc(ingest.Update)))

	settings := &SettingsHandlers{APIKeys: s.APIKeys, Users: s.Users, Logger: logger}
	mux.Handle("GET /api/settings/api-keys", session(http.HandlerFunc(settings.ListAPIKeys)))
	mux.Handle("POST /api/settings/api-keys", admin(http.HandlerFunc(settings.CreateAPIKey)))
	mux.Handle("DELETE /api/settings/api-keys/{id}", admin(http.HandlerFunc(settings.DeleteAPIKey)))
	mux.Handle("GET /api/settings/users", admin(http.HandlerFunc(settings.ListUsers)))
	mux.Handle("PATCH /api/settings/users/{id}", admin(http.HandlerFunc(settings.UpdateUserRole)))

	// Unknown API paths answer in the envelope rather than with the HTML 404 page.
	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusNotFound, msgNotFound)
	})
}

func staticFS(s RouterServices, logger *slog.Logger) fs.FS {
	if s.StaticFS != nil {
		return s.StaticFS
	}
	if s.IsDev {
		return os.DirFS(StaticPathFromRoot)
	}
	sub, err := fs.Sub(qadash.StaticFS, StaticPathFromRoot)
	if err != nil {
		logger.Error("failed to create sub-filesystem for static assets", "error", err)
		return os.DirFS(StaticPathFromRoot)
	}
	return sub
}

func registerStaticRoutes(mux *http.ServeMux, fsys fs.FS) {
	files := http.FileServerFS(fsys)
	mux.Handle("GET /static/", http.StripPrefix("/static/", files))
	mux.Handle("GET /images/", files)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFileFS(w, r, fsys, "favicon.ico")
	})
}

// setupUIHandlers returns nil when templates cannot be parsed; pages then answer 500.
func setupUIHandlers(s RouterServices, logger *slog.Logger) *UIHandlers {
	templateFS := s.TemplateFS
	if templateFS == nil {
		if s.IsDev {
			templateFS = os.DirFS(TemplatePathFromRoot)
		} else {
			sub, err := fs.Sub(qadash.TemplateFS, TemplatePathFromRoot)
			if err != nil {
				logger.Error("failed to create sub-filesystem for templates", "error", err)
				return nil
			}
			templateFS = sub
		}
	}

	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS,
		DevMode:    s.IsDev,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create template renderer", slog.Any("error", err))
		return nil
	}
	return &UIHandlers{
		T:         tr,
		Auth:      s.Auth,
		Dashboard: s.Dashboard,
		Agents:    s.Agents,
		TestRuns:  s.TestRuns,
		APIKeys:   s.APIKeys,
		Cookies:   s.Cookies,
		CSRFField: DefaultCSRFCookieName,
		Logger:    logger,
	}
}

func registerUIRoutes(mux *http.ServeMux, ui *UIHandlers, cookies CookieConfig) {
	if ui == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		})
		return
	}
	csrf := CSRFProtection(CSRFConfig{CookieDomain: cookies.Domain})
	page := func(h http.HandlerFunc) http.Handler { return csrf(h) }

	mux.Handle("GET /login", page(ui.LoginPage))
	mux.Handle("POST /login", page(ui.LoginSubmit))
	mux.Handle("POST /logout", page(ui.Logout))
	mux.Handle("GET /{$}", page(ui.Home))
	mux.Handle("GET /dashboard", page(ui.DashboardPage))
	mux.Handle("GET /dashboard/agents", page(ui.AgentsPage))
	mux.Handle("GET /dashboard/runs/{id}", page(ui.RunPage))
	mux.Handle("GET /dashboard/settings", page(ui.SettingsPage))
	mux.Handle("/", page(ui.NotFound))
}
