package httpx

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
	"github.com/agentqa/qa-dashboard/internal/service"
)

const ssoCallbackPath = "/api/auth/sso/callback"

// AuthHandlers serves the JSON auth endpoints and the SSO redirect flow.
type AuthHandlers struct {
	Svc      AuthService
	Resolver *SessionResolver
	Cookies  CookieConfig
	Logger   *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APILogin signs in with email and password and sets the session cookie.
func (h *AuthHandlers) APILogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Svc.SignIn(r.Context(), service.SignInInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: clientIP(r),
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	h.Cookies.setSession(w, r, res.Session.Token, res.Session.ExpiresAt)
	WriteSuccess(w, http.StatusOK, map[string]any{"user": res.User.Identity()})
}

// APILogout clears the session cookie. It succeeds with or without a session.
func (h *AuthHandlers) APILogout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.clearSession(w, r)
	WriteSuccess(w, http.StatusOK, nil)
}

// Session reports the caller's session state; it never answers 401.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.Resolver.Resolve(r)
	if !ok {
		WriteSuccess(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"authenticated": true, "user": identity})
}

// SSOLogin starts the provider flow and redirects the browser to it.
func (h *AuthHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.SSOEnabled() {
		WriteError(w, http.StatusNotFound, "SSO is not enabled")
		return
	}
	begin, err := h.Svc.BeginSSO(r.Context(), callbackURL(r))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	setTempCookie(w, r, ssoStateCookie, begin.State, h.Cookies.Domain)
	setTempCookie(w, r, ssoNonceCookie, begin.Nonce, h.Cookies.Domain)
	http.Redirect(w, r, begin.AuthURL, http.StatusFound)
}

// SSOCallback completes the provider flow, sets the session cookie and lands on the dashboard.
// Failures send the browser back to the sign-in page.
func (h *AuthHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.SSOEnabled() {
		WriteError(w, http.StatusNotFound, "SSO is not enabled")
		return
	}
	q := r.URL.Query()
	state := q.Get("state")
	wantState := cookieValue(r, ssoStateCookie)
	nonce := cookieValue(r, ssoNonceCookie)
	clearTempCookie(w, r, ssoStateCookie, h.Cookies.Domain)
	clearTempCookie(w, r, ssoNonceCookie, h.Cookies.Domain)

	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(wantState)) != 1 {
		h.Logger.WarnContext(r.Context(), "sso callback state mismatch")
		http.Redirect(w, r, loginPath+"?error=sso", http.StatusSeeOther)
		return
	}

	res, err := h.Svc.CompleteSSO(r.Context(), service.CompleteSSOInput{
		Code:  q.Get("code"),
		State: state,
		Nonce: nonce,
	})
	if err != nil {
		level := slog.LevelWarn
		if apperrors.GetCode(err) == "" {
			level = slog.LevelError
		}
		h.Logger.Log(r.Context(), level, "sso sign-in failed", "error", err)
		http.Redirect(w, r, loginPath+"?error=sso", http.StatusSeeOther)
		return
	}
	h.Cookies.setSession(w, r, res.Session.Token, res.Session.ExpiresAt)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func callbackURL(r *http.Request) string {
	scheme := "http"
	if isSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + ssoCallbackPath
}

// clientIP is the TCP peer address; forwarded headers are not trusted for throttling.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
