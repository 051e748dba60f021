package httpx

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

type recordingSink struct {
	mu     sync.Mutex
	counts map[string][]map[string]string
	timing []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{counts: map[string][]map[string]string{}}
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name] = append(s.counts[name], tags)
}

func (s *recordingSink) Timing(name string, _ time.Duration, _ map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timing = append(s.timing, name)
}

func TestLoggingAssignsRequestID(t *testing.T) {
	sink := newRecordingSink()
	var seen string
	h := Logging(discardLogger(), sink)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	require.Len(t, sink.counts["http.request"], 1)
	assert.Equal(t, "2xx", sink.counts["http.request"][0]["status_class"])
	assert.Equal(t, []string{"http.request.duration"}, sink.timing)
}

func TestLoggingRequestIDHeader(t *testing.T) {
	h := Logging(discardLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	given := "2f1b8a0c-7d3e-4b5a-9c8d-1e2f3a4b5c6d"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", given)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestLoggingForwardsFlush(t *testing.T) {
	first := strings.Repeat(`{"step":1}`, 50)
	var flushErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, first)
		flushErr = http.NewResponseController(w).Flush()
	})
	h := Compression(CompressionConfig{Level: 5, Logger: discardLogger()})(Logging(discardLogger(), nil)(handler))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/active", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NoError(t, flushErr)
	assert.True(t, rec.Flushed)
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, first, string(plain))
}

func TestRespWriterUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &respWriter{ResponseWriter: rec, status: http.StatusOK}
	assert.Same(t, rec, w.Unwrap())
	w.Flush()
	assert.True(t, rec.Flushed)
}

func TestRecover(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/active", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success": false, "error": "Internal server error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestRecoverRepanicsAbort(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequireAPIKey(t *testing.T) {
	keys := &fakeAPIKeys{authKey: &model.APIKey{ID: testKeyID}}
	var got *model.APIKey
	h := RequireAPIKey(keys, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = APIKeyFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic qak_valid", http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"unknown key", "Bearer qak_other", http.StatusUnauthorized},
		{"valid", "Bearer qak_valid", http.StatusNoContent},
		{"scheme is case-insensitive", "bearer qak_valid", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodPost, "/api/ingest/test-runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				require.NotNil(t, got)
				assert.Equal(t, testKeyID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRequireAdminAttachesIdentity(t *testing.T) {
	codec := newTestCodec(t, nil)
	var who domainauth.Identity
	h := RequireAdmin(NewSessionResolver(codec, testCookieName))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/settings/users", nil)
	req.AddCookie(sessionCookie(t, codec, domainauth.RoleAdmin))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-admin", who.ID)
}

func TestCompression(t *testing.T) {
	body := strings.Repeat(`{"success":true}`, 200)
	h := Compression(CompressionConfig{Level: 5, Logger: discardLogger()})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image":
			w.Header().Set("Content-Type", "image/png")
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		_, _ = io.WriteString(w, body)
	}))

	t.Run("gzips json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/json", nil)
		req.Header.Set("Accept-Encoding", "br, gzip;q=0.8")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(plain))
	})

	t.Run("respects q=0", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/json", nil)
		req.Header.Set("Accept-Encoding", "gzip;q=0")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})

	t.Run("skips binary", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/image", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rec.Body.String())
	})

	t.Run("skips no content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/empty", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
	})
}

func TestAcceptsGzip(t *testing.T) {
	assert.True(t, acceptsGzip("gzip"))
	assert.True(t, acceptsGzip("deflate, GZIP"))
	assert.True(t, acceptsGzip("*"))
	assert.False(t, acceptsGzip(""))
	assert.False(t, acceptsGzip("br"))
	assert.False(t, acceptsGzip("gzip;q=0"))
	assert.False(t, acceptsGzip("gzip; q=0.0"))
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", apperrors.ValidationField("name", "name is required"), http.StatusBadRequest, "name is required"},
		{"not found", apperrors.NotFound("Agent not found"), http.StatusNotFound, "Agent not found"},
		{"unauthorized hides detail", apperrors.Unauthorized("token expired"), http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", apperrors.Forbidden("nope"), http.StatusForbidden, "Forbidden. Admin access required."},
		{"rate limited", apperrors.RateLimited("slow down"), http.StatusTooManyRequests, "slow down"},
		{"conflict", apperrors.Conflict("Email already exists"), http.StatusConflict, "Email already exists"},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), discardLogger(), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			body := decodeEnvelope(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	post := func(body, contentType string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req
	}

	rec := httptest.NewRecorder()
	ok := DecodeJSON(rec, post(`{"name":"a","extra":1}`, "application/json"), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	huge := `{"name":"` + strings.Repeat("a", maxJSONBodyBytes) + `"}`
	ok = DecodeJSON(rec, post(huge, "application/json"), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	ok = DecodeJSON(rec, post(`{"name":"ok"}`, "application/json; charset=utf-8"), &dst)
	assert.True(t, ok)
	assert.Equal(t, "ok", dst.Name)
}

func TestDecodeJSONRequiresJSONContentType(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	for _, contentType := range []string{"", "text/plain", "application/x-www-form-urlencoded", "multipart/form-data; boundary=x", "application/jsonp"} {
		t.Run(contentType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			rec := httptest.NewRecorder()
			assert.False(t, DecodeJSON(rec, req, &dst))
			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.Equal(t, "Content-Type must be application/json", decodeEnvelope(t, rec)["error"])
		})
	}
}
