package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const (
	apiKeySecretBytes  = 32
	apiKeyPrefixLength = 8
)

// ErrInvalidAPIKey is returned when a presented key is missing or unknown.
var ErrInvalidAPIKey = apperrors.Unauthorized("Unauthorized")

// APIKeyServiceOptions groups dependencies for APIKeyService.
type APIKeyServiceOptions struct {
	Repo   core.APIKeyRepository // Required
	Logger *slog.Logger
	Now    func() time.Time
}

// APIKeyService issues and verifies the keys agents use to report runs.
type APIKeyService struct {
	repo   core.APIKeyRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewAPIKeyService constructs a new APIKeyService.
func NewAPIKeyService(opts APIKeyServiceOptions) *APIKeyService {
	if opts.Repo == nil {
		panic("APIKeyRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &APIKeyService{repo: opts.Repo, logger: logger, now: now}
}

// List returns all keys without their secrets.
func (s *APIKeyService) List(ctx context.Context) ([]*model.APIKey, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// Create issues a new key. The plaintext secret is only available on the result.
func (s *APIKeyService) Create(ctx context.Context, req model.CreateAPIKeyRequest, createdBy string) (*model.CreatedAPIKey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	secret, err := newAPIKeySecret()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	rec := model.NewAPIKeyRecord{
		Name:    req.Name,
		Prefix:  secret[:apiKeyPrefixLength],
		KeyHash: hashAPIKey(secret),
	}
	if createdBy != "" {
		rec.CreatedBy = &createdBy
	}

	key, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	s.logger.InfoContext(ctx, "api key created", "api_key_id", key.ID, "created_by", createdBy)
	return &model.CreatedAPIKey{APIKey: *key, Secret: secret}, nil
}

// Delete removes a key. It reports false when the key did not exist.
func (s *APIKeyService) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "api key deleted", "api_key_id", id)
	}
	return ok, nil
}

// Authenticate resolves a raw secret to its key and records the use.
func (s *APIKeyService) Authenticate(ctx context.Context, secret string) (*model.APIKey, error) {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, model.APIKeyPrefix) || len(secret) <= len(model.APIKeyPrefix) {
		return nil, ErrInvalidAPIKey
	}

	key, err := s.repo.GetByHash(ctx, hashAPIKey(secret))
	if apperrors.IsNotFound(err) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	if touchErr := s.repo.TouchLastUsed(ctx, key.ID, s.now()); touchErr != nil {
		s.logger.WarnContext(ctx, "touch api key failed", "api_key_id", key.ID, "error", touchErr)
	}
	return key, nil
}

func newAPIKeySecret() (string, error) {
	buf := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return model.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
