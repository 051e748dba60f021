package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
	"github.com/agentqa/qa-dashboard/internal/mocks"
	authmocks "github.com/agentqa/qa-dashboard/internal/mocks/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

type authFixture struct {
	users    *mocks.MockUserRepository
	limiter  *authmocks.MemoryLoginLimiter
	sessions *authmocks.MemorySessionCodec
	provider *authmocks.MockAuthProvider
	svc      *AuthService
}

func newAuthFixture(t *testing.T, role domainauth.Role) *authFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &authFixture{
		users:    mocks.NewMockUserRepository(ctrl),
		limiter:  authmocks.NewMemoryLoginLimiter(3),
		sessions: authmocks.NewMemorySessionCodec(),
		provider: authmocks.NewMockAuthProvider(),
	}
	f.svc = NewAuthService(AuthServiceOptions{
		Users:     f.users,
		Sessions:  f.sessions,
		Passwords: PasswordAuth{Hasher: authmocks.PlainHasher{}, Limiter: f.limiter},
		SSO:       SSOAuth{Provider: f.provider, Roles: authmocks.StaticRoleMapper{Role: role}},
	})
	return f
}

func userWithPassword(password string, role domainauth.Role) *model.User {
	hash := "plain:" + password
	return &model.User{ID: "u-1", Name: "Ada", Email: "ada@example.test", PasswordHash: &hash, Role: role}
}

func TestNewAuthService_PanicsWithoutRequiredDeps(t *testing.T) {
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{}) })
}

func TestAuthService_SignIn_Success(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	ctx := context.Background()
	user := userWithPassword("correct-horse", domainauth.RoleTester)

	require.NoError(t, f.limiter.RecordFailure(ctx, "ada@example.test", ""))
	f.users.EXPECT().GetByEmail(gomock.Any(), "ada@example.test").Return(user, nil)

	res, err := f.svc.SignIn(ctx, SignInInput{Email: "  ADA@example.test ", Password: "correct-horse", ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, user, res.User)
	assert.NotEmpty(t, res.Session.Token)
	assert.Zero(t, f.limiter.Failures("ada@example.test"), "success resets the limiter")

	identity, err := f.sessions.Verify(res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Identity{ID: "u-1", Name: "Ada", Email: "ada@example.test", Role: domainauth.RoleTester}, identity)
}

func TestAuthService_SignIn_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	ctx := context.Background()

	f.users.EXPECT().GetByEmail(gomock.Any(), "ada@example.test").Return(userWithPassword("right-password", domainauth.RoleViewer), nil)
	_, wrongPwErr := f.svc.SignIn(ctx, SignInInput{Email: "ada@example.test", Password: "wrong-password"})

	f.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.test").Return(nil, apperrors.NotFound("User not found"))
	_, unknownErr := f.svc.SignIn(ctx, SignInInput{Email: "ghost@example.test", Password: "whatever-pw"})

	require.ErrorIs(t, wrongPwErr, ErrInvalidCredentials)
	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.Equal(t, 1, f.limiter.Failures("ada@example.test"))
	assert.Equal(t, 1, f.limiter.Failures("ghost@example.test"))
}

func TestAuthService_SignIn_SSOOnlyAccountRejected(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	f.users.EXPECT().GetByEmail(gomock.Any(), "sso@example.test").
		Return(&model.User{ID: "u-2", Email: "sso@example.test", Role: domainauth.RoleViewer}, nil)

	_, err := f.svc.SignIn(context.Background(), SignInInput{Email: "sso@example.test", Password: "anything-at-all"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignIn_EmptyInputSkipsLookup(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	_, err := f.svc.SignIn(context.Background(), SignInInput{Email: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignIn_Throttled(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	ctx := context.Background()
	for range 3 {
		require.NoError(t, f.limiter.RecordFailure(ctx, "ada@example.test", ""))
	}

	_, err := f.svc.SignIn(ctx, SignInInput{Email: "ada@example.test", Password: "correct-horse"})
	require.ErrorIs(t, err, ports.ErrRateLimited)
	assert.True(t, apperrors.IsRateLimited(err))
}

func TestAuthService_SignIn_RepositoryFailure(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	boom := errors.New("connection reset")
	f.users.EXPECT().GetByEmail(gomock.Any(), "ada@example.test").Return(nil, boom)

	_, err := f.svc.SignIn(context.Background(), SignInInput{Email: "ada@example.test", Password: "correct-horse"})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_BeginSSO(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)

	res, err := f.svc.BeginSSO(context.Background(), "https://dash.example.test/api/auth/sso/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", res.AuthURL)
	assert.Equal(t, "state-1", res.State)
	assert.Equal(t, "nonce-1", res.Nonce)

	_, err = f.svc.BeginSSO(context.Background(), "")
	assert.Error(t, err)
}

func TestAuthService_SSODisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewAuthService(AuthServiceOptions{
		Users:     mocks.NewMockUserRepository(ctrl),
		Sessions:  authmocks.NewMemorySessionCodec(),
		Passwords: PasswordAuth{Hasher: authmocks.PlainHasher{}},
	})
	assert.False(t, svc.SSOEnabled())

	_, err := svc.BeginSSO(context.Background(), "https://x")
	assert.ErrorIs(t, err, ErrSSODisabled)
	_, err = svc.CompleteSSO(context.Background(), CompleteSSOInput{Code: "c", State: "s", Nonce: "n"})
	assert.ErrorIs(t, err, ErrSSODisabled)
}

func TestAuthService_CompleteSSO_ProvisionsNewUserWithMappedRole(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleTester)
	ctx := context.Background()

	f.users.EXPECT().GetByEmail(gomock.Any(), "mock.user@example.test").Return(nil, apperrors.NotFound("User not found"))
	f.users.EXPECT().Create(gomock.Any(), model.NewUser{
		Name: "Mock User", Email: "mock.user@example.test", Role: domainauth.RoleTester,
	}).Return(&model.User{ID: "u-9", Name: "Mock User", Email: "mock.user@example.test", Role: domainauth.RoleTester}, nil)

	res, err := f.svc.CompleteSSO(ctx, CompleteSSOInput{Code: "code", State: "state-1", Nonce: "nonce-1"})
	require.NoError(t, err)
	assert.Equal(t, "u-9", res.User.ID)

	identity, err := f.sessions.Verify(res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTester, identity.Role)
}

func TestAuthService_CompleteSSO_ExistingUserKeepsStoredRole(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	existing := &model.User{ID: "u-1", Name: "Mock User", Email: "mock.user@example.test", Role: domainauth.RoleAdmin}
	f.users.EXPECT().GetByEmail(gomock.Any(), "mock.user@example.test").Return(existing, nil)

	res, err := f.svc.CompleteSSO(context.Background(), CompleteSSOInput{Code: "code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, res.User.Role)
}

func TestAuthService_CompleteSSO_CreateRaceFallsBackToLookup(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	winner := &model.User{ID: "u-7", Email: "mock.user@example.test", Role: domainauth.RoleViewer}

	gomock.InOrder(
		f.users.EXPECT().GetByEmail(gomock.Any(), "mock.user@example.test").Return(nil, apperrors.NotFound("User not found")),
		f.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, apperrors.Conflict("A user with this email already exists")),
		f.users.EXPECT().GetByEmail(gomock.Any(), "mock.user@example.test").Return(winner, nil),
	)

	res, err := f.svc.CompleteSSO(context.Background(), CompleteSSOInput{Code: "code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "u-7", res.User.ID)
}

func TestAuthService_CompleteSSO_Validation(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	for _, in := range []CompleteSSOInput{
		{State: "s", Nonce: "n"},
		{Code: "c", Nonce: "n"},
		{Code: "c", State: "s"},
	} {
		_, err := f.svc.CompleteSSO(context.Background(), in)
		assert.True(t, apperrors.IsValidation(err), "%+v", in)
	}
}

func TestAuthService_CompleteSSO_ExchangeFailure(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	boom := errors.New("state mismatch")
	f.provider.ExchangeFunc = func(context.Context, ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
		return domainauth.ExternalIdentity{}, boom
	}

	_, err := f.svc.CompleteSSO(context.Background(), CompleteSSOInput{Code: "c", State: "s", Nonce: "n"})
	assert.ErrorIs(t, err, boom)
}

func TestAuthService_CompleteSSO_MissingEmail(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)
	f.provider.DefaultUser.Email = ""

	_, err := f.svc.CompleteSSO(context.Background(), CompleteSSOInput{Code: "c", State: "s", Nonce: "n"})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_IssueSession(t *testing.T) {
	f := newAuthFixture(t, domainauth.RoleViewer)

	_, err := f.svc.IssueSession(domainauth.Identity{ID: "u-1", Role: "ROOT"})
	require.Error(t, err)

	sess, err := f.svc.IssueSession(domainauth.Identity{ID: "u-1", Role: domainauth.RoleManager})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}
