package httpx

import (
	"net/http"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

// SessionResolver turns a request's session cookie into an identity.
// Resolution reads only the request and in-memory signing material.
type SessionResolver struct {
	codec      ports.SessionCodec
	cookieName string
}

// NewSessionResolver constructs a resolver. Panics if codec is nil or cookieName is empty.
func NewSessionResolver(codec ports.SessionCodec, cookieName string) *SessionResolver {
	if codec == nil {
		panic("SessionCodec is required for SessionResolver")
	}
	if cookieName == "" {
		panic("cookie name is required for SessionResolver")
	}
	return &SessionResolver{codec: codec, cookieName: cookieName}
}

// Resolve returns the identity carried by the request's session cookie.
// Absent, malformed, forged or expired tokens all yield ok=false; it never fails.
func (s *SessionResolver) Resolve(r *http.Request) (domainauth.Identity, bool) {
	if res, ok := resolvedFromContext(r.Context()); ok {
		return res.identity, res.ok
	}
	c, err := r.Cookie(s.cookieName)
	if err != nil || c.Value == "" {
		return domainauth.Identity{}, false
	}
	identity, err := s.codec.Verify(c.Value)
	if err != nil || !identity.Valid() {
		return domainauth.Identity{}, false
	}
	return identity, true
}

// Attach resolves r and returns a request whose context records the outcome,
// so later lookups reuse it instead of verifying the token again.
func (s *SessionResolver) Attach(r *http.Request) (*http.Request, domainauth.Identity, bool) {
	if res, ok := resolvedFromContext(r.Context()); ok {
		return r, res.identity, res.ok
	}
	identity, ok := s.Resolve(r)
	if ok {
		return r.WithContext(WithIdentity(r.Context(), identity)), identity, true
	}
	return r.WithContext(withAnonymous(r.Context())), identity, false
}
