// Package sessiontoken signs and verifies the stateless session cookie value.
package sessiontoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

const (
	// MinSecretBytes is the shortest HS256 key accepted.
	MinSecretBytes = 32
	maxLeeway      = 2 * time.Minute
)

// Config configures a Codec.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Codec implements ports.SessionCodec with HS256 JWTs.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

var _ ports.SessionCodec = (*Codec)(nil)

type sessionClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// New validates cfg and builds a Codec.
func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretBytes)
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("session issuer is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Codec{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    now,
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	c.parser = jwt.NewParser(opts...)
	return c, nil
}

// TTL returns the lifetime of issued sessions.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a session for identity.
func (c *Codec) Issue(identity domainauth.Identity) (ports.IssuedSession, error) {
	if !identity.Valid() {
		return ports.IssuedSession{}, errors.New("cannot issue session for invalid identity")
	}
	now := c.now()
	exp := now.Add(c.ttl)
	claims := sessionClaims{
		Name:  identity.Name,
		Email: identity.Email,
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return ports.IssuedSession{}, fmt.Errorf("sign session: %w", err)
	}
	return ports.IssuedSession{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, issuer and expiry and returns the embedded identity.
// Every failure is reported as ports.ErrInvalidSession.
func (c *Codec) Verify(token string) (domainauth.Identity, error) {
	if token == "" {
		return domainauth.Identity{}, ports.ErrInvalidSession
	}
	var claims sessionClaims
	parsed, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domainauth.Identity{}, fmt.Errorf("%w: %v", ports.ErrInvalidSession, err)
	}

	role, ok := domainauth.ParseRole(claims.Role)
	if !ok {
		return domainauth.Identity{}, fmt.Errorf("%w: unknown role %q", ports.ErrInvalidSession, claims.Role)
	}
	id := domainauth.Identity{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  role,
	}
	if !id.Valid() {
		return domainauth.Identity{}, fmt.Errorf("%w: missing subject", ports.ErrInvalidSession)
	}
	return id, nil
}
