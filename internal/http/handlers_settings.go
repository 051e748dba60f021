package httpx

import (
	"log/slog"
	"net/http"

	"github.com/agentqa/qa-dashboard/internal/data"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

// SettingsHandlers manage API keys and user roles.
type SettingsHandlers struct {
	APIKeys APIKeyService
	Users   UserService
	Logger  *slog.Logger
}

// ListAPIKeys lists keys without secrets. Any signed-in role may call it.
func (h *SettingsHandlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.APIKeys.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{"api_keys": nonNil(keys)})
}

// CreateAPIKey issues a key; the secret is only in this response.
func (h *SettingsHandlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAPIKeyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	identity, _ := IdentityFromContext(r.Context())
	created, err := h.APIKeys.Create(r.Context(), req, identity.ID)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, map[string]any{"api_key": created})
}

// DeleteAPIKey revokes a key.
func (h *SettingsHandlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrAPIKeyNotFound)
	if !ok {
		return
	}
	deleted, err := h.APIKeys.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if !deleted {
		writeServiceError(w, r, h.Logger, data.ErrAPIKeyNotFound)
		return
	}
	WriteSuccess(w, http.StatusOK, nil)
}

// ListUsers pages through accounts.
func (h *SettingsHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r)
	users, err := h.Users.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]any{
		"users":  nonNil(users),
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateUserRole changes one account's role.
func (h *SettingsHandlers) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, data.ErrUserNotFound)
	if !ok {
		return
	}
	var req model.UpdateUserRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	user, err := h.Users.UpdateRole(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	actor, _ := IdentityFromContext(r.Context())
	h.Logger.InfoContext(r.Context(), "user role changed",
		"user_id", user.ID, "role", user.Role, "changed_by", actor.ID)
	WriteSuccess(w, http.StatusOK, map[string]any{"user": user})
}
