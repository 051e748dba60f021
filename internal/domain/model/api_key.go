//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const maxAPIKeyNameLen = 128

// APIKeyPrefix marks secrets issued by this service.
const APIKeyPrefix = "qak_"

// APIKey is a credential agents use to report runs. The secret itself is
// never stored; KeyHash is the SHA-256 of the full secret.
type APIKey struct {
	ID         string     `json:"id"                     db:"id"`
	Name       string     `json:"name"                   db:"name"`
	Prefix     string     `json:"prefix"                 db:"prefix"`
	KeyHash    string     `json:"-"                      db:"key_hash"`
	CreatedBy  *string    `json:"created_by,omitempty"   db:"created_by"`
	CreatedAt  time.Time  `json:"created_at"             db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// CreateAPIKeyRequest is the admin request to issue a key.
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// Validate normalizes and validates CreateAPIKeyRequest.
func (r *CreateAPIKeyRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if utf8.RuneCountInString(r.Name) > maxAPIKeyNameLen {
		return apperrors.ValidationField("name", "name cannot exceed 128 characters")
	}
	return nil
}

// NewAPIKeyRecord is what the repository persists for a freshly issued key.
type NewAPIKeyRecord struct {
	Name      string
	Prefix    string
	KeyHash   string
	CreatedBy *string
}

// CreatedAPIKey carries the stored key plus the plaintext secret, which is
// only ever returned from the create call.
type CreatedAPIKey struct {
	APIKey
	Secret string `json:"secret"`
}
