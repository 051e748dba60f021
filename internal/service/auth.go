package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/agentqa/qa-dashboard/internal/core"
	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
	"github.com/agentqa/qa-dashboard/internal/observability/metrics"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

var (
	// ErrInvalidCredentials is returned for any failed credentials sign-in.
	// Unknown email and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = apperrors.Unauthorized("Invalid email or password")

	// ErrSSODisabled is returned by the SSO operations when no provider is configured.
	ErrSSODisabled = apperrors.NotFound("SSO is not enabled")
)

// PasswordAuth groups the dependencies of credentials sign-in.
type PasswordAuth struct {
	Hasher  ports.PasswordHasher // Required
	Limiter ports.LoginLimiter   // Optional: no throttling when nil
}

// SSOAuth groups the dependencies of provider sign-in. A nil Provider disables SSO.
type SSOAuth struct {
	Provider ports.AuthProvider
	Roles    ports.RoleMapper
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users     core.UserRepository // Required
	Sessions  ports.SessionCodec  // Required
	Passwords PasswordAuth
	SSO       SSOAuth
	Logger    *slog.Logger
	Metrics   statsd.Sink
}

// AuthService signs users in with credentials or SSO and issues session tokens.
type AuthService struct {
	users    core.UserRepository
	sessions ports.SessionCodec
	hasher   ports.PasswordHasher
	limiter  ports.LoginLimiter
	provider ports.AuthProvider
	roles    ports.RoleMapper
	logger   *slog.Logger
	metrics  statsd.Sink

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Users == nil {
		panic("UserRepository is required")
	}
	if opts.Sessions == nil {
		panic("SessionCodec is required")
	}
	if opts.Passwords.Hasher == nil {
		panic("PasswordHasher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    opts.Users,
		sessions: opts.Sessions,
		hasher:   opts.Passwords.Hasher,
		limiter:  opts.Passwords.Limiter,
		provider: opts.SSO.Provider,
		roles:    opts.SSO.Roles,
		logger:   logger.With("component", "auth_service"),
		metrics:  opts.Metrics,
	}
}

// SignInInput carries a credentials sign-in attempt.
type SignInInput struct {
	Email    string
	Password string
	ClientIP string
}

// SignInResult is a signed-in user and their new session.
type SignInResult struct {
	User    *model.User
	Session ports.IssuedSession
}

// SignIn verifies email and password and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	res, err := s.signIn(ctx, in)
	metrics.EmitSignIn(s.metrics, "credentials", err)
	return res, err
}

func (s *AuthService) signIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	if err := s.checkLimiter(ctx, email, in.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case apperrors.IsNotFound(err):
		s.burnVerify(in.Password)
		return nil, s.fail(ctx, email, in.ClientIP)
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	case !user.HasPassword():
		s.burnVerify(in.Password)
		return nil, s.fail(ctx, email, in.ClientIP)
	}

	ok, err := s.hasher.Verify(in.Password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.fail(ctx, email, in.ClientIP)
	}

	if s.limiter != nil {
		if resetErr := s.limiter.Reset(ctx, email); resetErr != nil {
			s.logger.WarnContext(ctx, "reset login limiter failed", "error", resetErr)
		}
	}

	sess, err := s.sessions.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID, "method", "credentials")
	return &SignInResult{User: user, Session: sess}, nil
}

// checkLimiter fails open when the limiter backend is unavailable.
func (s *AuthService) checkLimiter(ctx context.Context, email, ip string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, email, ip)
	if err == nil {
		return nil
	}
	if apperrors.IsRateLimited(err) {
		s.logger.WarnContext(ctx, "sign-in throttled", "client_ip", ip)
		return err
	}
	s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
	return nil
}

func (s *AuthService) fail(ctx context.Context, email, ip string) error {
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, email, ip); err != nil {
			s.logger.WarnContext(ctx, "record login failure", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "sign-in rejected", "client_ip", ip)
	return ErrInvalidCredentials
}

// burnVerify spends the same work as a real verification so response
// timing does not reveal whether an account exists.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		buf := make([]byte, 24)
		_, _ = rand.Read(buf)
		h, err := s.hasher.Hash(base64.RawStdEncoding.EncodeToString(buf))
		if err != nil {
			s.logger.Warn("dummy password hash failed", "error", err)
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// SSOEnabled reports whether an identity provider is configured.
func (s *AuthService) SSOEnabled() bool {
	return s.provider != nil
}

// BeginSSOResult is the redirect target plus the values the callback must echo back.
type BeginSSOResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginSSO starts a provider login flow.
func (s *AuthService) BeginSSO(ctx context.Context, redirectURL string) (*BeginSSOResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginSSOResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteSSOInput groups the callback parameters and the stored nonce.
type CompleteSSOInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteSSO exchanges the authorization code, provisions or loads the
// matching user and issues a session. Existing users keep their stored role;
// new users get the role mapped from their provider groups.
func (s *AuthService) CompleteSSO(ctx context.Context, in CompleteSSOInput) (*SignInResult, error) {
	res, err := s.completeSSO(ctx, in)
	metrics.EmitSignIn(s.metrics, "sso", err)
	return res, err
}

func (s *AuthService) completeSSO(ctx context.Context, in CompleteSSOInput) (*SignInResult, error) {
	if s.provider == nil {
		return nil, ErrSSODisabled
	}
	switch {
	case in.Code == "":
		return nil, apperrors.Validation("authorization code is required")
	case in.State == "":
		return nil, apperrors.Validation("state parameter is required")
	case in.Nonce == "":
		return nil, apperrors.Validation("nonce parameter is required")
	}

	ext, err := s.provider.Exchange(ctx, ports.ExchangeInput(in))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	user, err := s.provisionUser(ctx, ext)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID, "method", "sso")
	return &SignInResult{User: user, Session: sess}, nil
}

func (s *AuthService) provisionUser(ctx context.Context, ext domainauth.ExternalIdentity) (*model.User, error) {
	email := model.NormalizeEmail(ext.Email)
	if email == "" {
		return nil, apperrors.Unauthorized("identity provider did not return an email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	role := domainauth.RoleViewer
	if s.roles != nil {
		role = s.roles.Map(ext.Groups)
	}
	name := strings.TrimSpace(ext.Name)
	if name == "" {
		name = email
	}

	user, err = s.users.Create(ctx, model.NewUser{Name: name, Email: email, Role: role})
	if apperrors.IsConflict(err) {
		// Lost a race with a concurrent first sign-in for the same email.
		return s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}
	s.logger.InfoContext(ctx, "provisioned user from SSO", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// IssueSession signs a session for an already-authenticated identity.
func (s *AuthService) IssueSession(identity domainauth.Identity) (ports.IssuedSession, error) {
	if !identity.Valid() {
		return ports.IssuedSession{}, errors.New("identity requires an id and a known role")
	}
	return s.sessions.Issue(identity)
}
