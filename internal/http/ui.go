package httpx

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
	"github.com/agentqa/qa-dashboard/internal/service"
)

// PageData is the root value every page template receives.
type PageData struct {
	Title      string
	Page       string
	Identity   *domainauth.Identity
	CSRFToken  string
	CSRFField  string
	Error      string
	Email      string
	SSOEnabled bool
	Data       any
}

// IsAdmin reports whether the viewer may see admin controls.
func (p PageData) IsAdmin() bool {
	return p.Identity != nil && p.Identity.IsAdmin()
}

// UIHandlers render the dashboard pages. Pages are not role-gated; the
// viewer's identity only changes which controls are shown.
type UIHandlers struct {
	T         *TemplateRenderer
	Auth      AuthService
	Dashboard DashboardService
	Agents    AgentService
	TestRuns  TestRunService
	APIKeys   APIKeyService
	Cookies   CookieConfig
	CSRFField string
	Logger    *slog.Logger
}

func (h *UIHandlers) pageData(r *http.Request, page, title string) PageData {
	pd := PageData{
		Title:     title,
		Page:      page,
		CSRFToken: CSRFTokenFromContext(r.Context()),
		CSRFField: h.CSRFField,
	}
	if identity, ok := IdentityFromContext(r.Context()); ok {
		pd.Identity = &identity
	}
	return pd
}

func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, status int, pd PageData) {
	if err := h.T.Render(w, status, pd.Page, pd); err != nil {
		h.Logger.ErrorContext(r.Context(), "render page", "page", pd.Page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *UIHandlers) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	pd := h.pageData(r, PageError, http.StatusText(status))
	pd.Error = msg
	h.render(w, r, status, pd)
}

// pageServiceError renders the error page for a failed service call.
func (h *UIHandlers) pageServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.IsNotFound(err) {
		h.renderError(w, r, http.StatusNotFound, apperrors.PublicMessage(err))
		return
	}
	h.Logger.ErrorContext(r.Context(), "page request failed", "path", r.URL.Path, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Try again shortly.")
}

// LoginPage renders the sign-in form.
func (h *UIHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	pd := h.pageData(r, PageLogin, "Sign in")
	pd.SSOEnabled = h.Auth.SSOEnabled()
	if r.URL.Query().Get("error") == "sso" {
		pd.Error = "Single sign-on failed. Try again."
	}
	h.render(w, r, http.StatusOK, pd)
}

// LoginSubmit handles the sign-in form post.
func (h *UIHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	email := r.PostFormValue("email")
	res, err := h.Auth.SignIn(r.Context(), service.SignInInput{
		Email:    email,
		Password: r.PostFormValue("password"),
		ClientIP: clientIP(r),
	})
	if err != nil {
		pd := h.pageData(r, PageLogin, "Sign in")
		pd.SSOEnabled = h.Auth.SSOEnabled()
		pd.Email = email
		status := http.StatusUnauthorized
		switch {
		case apperrors.IsRateLimited(err):
			status = http.StatusTooManyRequests
			pd.Error = apperrors.PublicMessage(err)
		case apperrors.IsUnauthorized(err):
			pd.Error = "Invalid email or password"
		default:
			h.Logger.ErrorContext(r.Context(), "form sign-in failed", "error", err)
			status = http.StatusInternalServerError
			pd.Error = "Something went wrong. Try again shortly."
		}
		h.render(w, r, status, pd)
		return
	}
	h.Cookies.setSession(w, r, res.Session.Token, res.Session.ExpiresAt)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// Logout clears the session and returns to the sign-in page.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearSession(w, r)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// Home sends the bare root to the dashboard.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// NotFound renders the 404 page for unknown page paths.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "Page not found")
}

// DashboardPage shows active runs and busy agents.
func (h *UIHandlers) DashboardPage(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dashboard.Active(r.Context())
	if err != nil {
		h.pageServiceError(w, r, err)
		return
	}
	pd := h.pageData(r, PageDashboard, "Dashboard")
	pd.Data = snap
	h.render(w, r, http.StatusOK, pd)
}

// AgentsPage lists agents.
func (h *UIHandlers) AgentsPage(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	agents, err := h.Agents.List(r.Context(), limit, offset)
	if err != nil {
		h.pageServiceError(w, r, err)
		return
	}
	pd := h.pageData(r, PageAgents, "Agents")
	pd.Data = map[string]any{
		"Agents":   agents,
		"Limit":    limit,
		"Offset":   offset,
		"HasPrev":  offset > 0,
		"HasNext":  len(agents) == limit,
		"PrevFrom": max(offset-limit, 0),
	}
	h.render(w, r, http.StatusOK, pd)
}

// RunPage shows one test run.
func (h *UIHandlers) RunPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		h.renderError(w, r, http.StatusNotFound, "Test run not found")
		return
	}
	run, err := h.TestRuns.Get(r.Context(), id)
	if err != nil {
		h.pageServiceError(w, r, err)
		return
	}
	pd := h.pageData(r, PageRun, "Test run")
	pd.Data = run
	h.render(w, r, http.StatusOK, pd)
}

// SettingsPage lists API keys. Create and delete controls render only for admins.
func (h *UIHandlers) SettingsPage(w http.ResponseWriter, r *http.Request) {
	keys, err := h.APIKeys.List(r.Context())
	if err != nil {
		h.pageServiceError(w, r, err)
		return
	}
	pd := h.pageData(r, PageSettings, "Settings")
	pd.Data = keys
	h.render(w, r, http.StatusOK, pd)
}
