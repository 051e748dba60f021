package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentqa/qa-dashboard/internal/adapters/sessiontoken"
	"github.com/agentqa/qa-dashboard/internal/data"
	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/service"
)

const (
	testCookieName = "qadash_session"
	testRunID      = "6f1f4c8e-2b8a-4a55-9a51-0d9f0d1c7a10"
	testAgentID    = "0b7f3d7e-5b1c-4c64-8b7e-3a8e0e7f1c22"
	testKeyID      = "3c2d1e0f-9a8b-4c7d-8e6f-5a4b3c2d1e0f"
	testUserID     = "9e8d7c6b-5a49-4837-a261-5f4e3d2c1b0a"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCodec(t *testing.T, now func() time.Time) *sessiontoken.Codec {
	t.Helper()
	codec, err := sessiontoken.New(sessiontoken.Config{
		Secret: testSecret,
		Issuer: "qa-dashboard",
		TTL:    time.Hour,
		Now:    now,
	})
	require.NoError(t, err)
	return codec
}

func identityFor(role domainauth.Role) domainauth.Identity {
	return domainauth.Identity{
		ID:    "user-" + strings.ToLower(string(role)),
		Name:  "Test " + string(role),
		Email: strings.ToLower(string(role)) + "@example.test",
		Role:  role,
	}
}

func sessionCookie(t *testing.T, codec *sessiontoken.Codec, role domainauth.Role) *http.Cookie {
	t.Helper()
	sess, err := codec.Issue(identityFor(role))
	require.NoError(t, err)
	return &http.Cookie{Name: testCookieName, Value: sess.Token}
}

// fakeAuth is a scriptable AuthService.
type fakeAuth struct {
	signIn     func(service.SignInInput) (*service.SignInResult, error)
	sso        bool
	beginURL   string
	completeFn func(service.CompleteSSOInput) (*service.SignInResult, error)
}

func (f *fakeAuth) SignIn(_ context.Context, in service.SignInInput) (*service.SignInResult, error) {
	return f.signIn(in)
}

func (f *fakeAuth) SSOEnabled() bool { return f.sso }

func (f *fakeAuth) BeginSSO(context.Context, string) (*service.BeginSSOResult, error) {
	return &service.BeginSSOResult{AuthURL: f.beginURL, State: "state-1", Nonce: "nonce-1"}, nil
}

func (f *fakeAuth) CompleteSSO(_ context.Context, in service.CompleteSSOInput) (*service.SignInResult, error) {
	return f.completeFn(in)
}

type fakeAPIKeys struct {
	keys       []*model.APIKey
	authKey    *model.APIKey
	deleteHit  bool
	deleted    []string
	createdBy  string
	createdFor model.CreateAPIKeyRequest
}

func (f *fakeAPIKeys) Authenticate(_ context.Context, secret string) (*model.APIKey, error) {
	if f.authKey == nil || secret != "qak_valid" {
		return nil, service.ErrInvalidAPIKey
	}
	return f.authKey, nil
}

func (f *fakeAPIKeys) List(context.Context) ([]*model.APIKey, error) { return f.keys, nil }

func (f *fakeAPIKeys) Create(_ context.Context, req model.CreateAPIKeyRequest, createdBy string) (*model.CreatedAPIKey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.createdFor, f.createdBy = req, createdBy
	return &model.CreatedAPIKey{
		APIKey: model.APIKey{ID: testKeyID, Name: req.Name, Prefix: "qak_abcd"},
		Secret: "qak_abcdsecret",
	}, nil
}

func (f *fakeAPIKeys) Delete(_ context.Context, id string) (bool, error) {
	f.deleted = append(f.deleted, id)
	return f.deleteHit, nil
}

type fakeUsers struct {
	users []*model.User
}

func (f *fakeUsers) List(context.Context, int, int) ([]*model.User, error) { return f.users, nil }

func (f *fakeUsers) UpdateRole(_ context.Context, id string, req model.UpdateUserRoleRequest) (*model.User, error) {
	role, err := req.Parse()
	if err != nil {
		return nil, err
	}
	if id != testUserID {
		return nil, data.ErrUserNotFound
	}
	return &model.User{ID: id, Name: "Ada", Email: "ada@example.test", Role: role}, nil
}

type fakeAgents struct {
	agents []*model.Agent
}

func (f *fakeAgents) List(context.Context, int, int) ([]*model.Agent, error) { return f.agents, nil }

func (f *fakeAgents) Get(_ context.Context, id string) (*model.AgentDetail, error) {
	for _, a := range f.agents {
		if a.ID == id {
			return &model.AgentDetail{Agent: a}, nil
		}
	}
	return nil, data.ErrAgentNotFound
}

type fakeRuns struct {
	runs      []*model.TestRun
	lastOpts  model.TestRunListOptions
	ingested  *model.IngestTestRunRequest
	reportErr error
}

func (f *fakeRuns) List(_ context.Context, opts model.TestRunListOptions) ([]*model.TestRun, error) {
	f.lastOpts = opts
	return f.runs, nil
}

func (f *fakeRuns) Get(_ context.Context, id string) (*model.TestRun, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, data.ErrTestRunNotFound
}

func (f *fakeRuns) Report(ctx context.Context, id, _ string) (any, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	if _, err := f.Get(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"passed": 3.0}, nil
}

func (f *fakeRuns) Ingest(_ context.Context, req *model.IngestTestRunRequest) (*model.TestRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.ingested = req
	return &model.TestRun{ID: testRunID, AgentID: testAgentID, Suite: req.Suite, Status: req.Status}, nil
}

func (f *fakeRuns) Update(ctx context.Context, id string, req *model.UpdateTestRunRequest) (*model.TestRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.Get(ctx, id)
}

type fakeDashboard struct {
	snap *model.ActiveSnapshot
	err  error
}

func (f *fakeDashboard) Active(context.Context) (*model.ActiveSnapshot, error) {
	return f.snap, f.err
}

type testEnv struct {
	handler   http.Handler
	codec     *sessiontoken.Codec
	auth      *fakeAuth
	keys      *fakeAPIKeys
	users     *fakeUsers
	agents    *fakeAgents
	runs      *fakeRuns
	dashboard *fakeDashboard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	env := &testEnv{
		codec: newTestCodec(t, nil),
		auth:  &fakeAuth{signIn: func(service.SignInInput) (*service.SignInResult, error) { return nil, service.ErrInvalidCredentials }},
		keys: &fakeAPIKeys{
			keys:    []*model.APIKey{{ID: testKeyID, Name: "ci", Prefix: "qak_abcd"}},
			authKey: &model.APIKey{ID: testKeyID, Name: "ci"},
		},
		users:  &fakeUsers{users: []*model.User{{ID: testUserID, Name: "Ada", Email: "ada@example.test", Role: domainauth.RoleViewer}}},
		agents: &fakeAgents{agents: []*model.Agent{{ID: testAgentID, Name: "qa-bot", Model: "gpt", Status: model.AgentStatusRunning}}},
		runs: &fakeRuns{runs: []*model.TestRun{{
			ID: testRunID, AgentID: testAgentID, Suite: "checkout", Status: model.TestRunStatusRunning, StartedAt: &started,
		}}},
	}
	env.dashboard = &fakeDashboard{snap: &model.ActiveSnapshot{
		Runs:        env.runs.runs,
		Agents:      env.agents.agents,
		GeneratedAt: started,
	}}
	env.handler = NewRouter(RouterServices{
		Auth:       env.auth,
		Sessions:   env.codec,
		APIKeys:    env.keys,
		Users:      env.users,
		Agents:     env.agents,
		TestRuns:   env.runs,
		Dashboard:  env.dashboard,
		Cookies:    CookieConfig{Name: testCookieName, MaxAge: time.Hour},
		TemplateFS: os.DirFS("../../frontend/templates"),
		StaticFS:   os.DirFS("../../frontend/static"),
		Logger:     discardLogger(),
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	if req.ContentLength > 0 && req.Header.Get("Content-Type") == "" && strings.HasPrefix(req.URL.Path, "/api/") {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doAs(t *testing.T, role domainauth.Role, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.AddCookie(sessionCookie(t, e.codec, role))
	return e.do(req)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.NewReader(string(b))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
