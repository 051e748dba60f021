package httpx

import (
	"context"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
)

// resolutionKey is an unexported context key type to avoid collisions across packages.
// All handlers and middleware read the resolved identity through the helpers below.
type resolutionKey struct{}

// resolution records the outcome of resolving a request's session. A present
// resolution with ok=false means the request was resolved and is anonymous.
type resolution struct {
	identity domainauth.Identity
	ok       bool
}

// WithIdentity returns a child context carrying an authenticated identity.
func WithIdentity(ctx context.Context, identity domainauth.Identity) context.Context {
	return context.WithValue(ctx, resolutionKey{}, resolution{identity: identity, ok: true})
}

// withAnonymous marks ctx as resolved with no identity.
func withAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, resolutionKey{}, resolution{})
}

// IdentityFromContext returns the identity attached to ctx, if any.
func IdentityFromContext(ctx context.Context) (domainauth.Identity, bool) {
	res, ok := ctx.Value(resolutionKey{}).(resolution)
	if !ok || !res.ok {
		return domainauth.Identity{}, false
	}
	return res.identity, true
}

// resolvedFromContext reports whether the session was already resolved for this request.
func resolvedFromContext(ctx context.Context) (resolution, bool) {
	res, ok := ctx.Value(resolutionKey{}).(resolution)
	return res, ok
}
