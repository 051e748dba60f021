// Package devauth provides a config-driven AuthProvider for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

// CallbackPath is where Begin sends the browser back to.
const CallbackPath = "/api/auth/sso/callback"

// Config controls the dev auth provider behavior. Groups may be empty.
type Config struct {
	Subject string
	Name    string
	Email   string
	Groups  []string
}

// Provider short-circuits SSO: Begin points straight at our own callback
// and Exchange returns the configured identity regardless of the code.
type Provider struct {
	identity domainauth.ExternalIdentity
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.Subject) == "" {
		return nil, errors.New("dev auth: subject is required")
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return nil, errors.New("dev auth: email is required")
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Subject
	}
	return &Provider{identity: domainauth.ExternalIdentity{
		Subject: cfg.Subject,
		Name:    name,
		Email:   cfg.Email,
		Groups:  append([]string(nil), cfg.Groups...),
	}}, nil
}

// Begin returns a local callback URL plus a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return CallbackPath + "?" + q.Encode(), state, nonce, nil
}

// Exchange returns the configured identity. State and nonce are checked by the caller.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	id.ExpiresAt = time.Now().Add(8 * time.Hour)
	return id, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
