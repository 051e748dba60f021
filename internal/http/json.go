package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

// Envelope error messages shared by every API handler.
const (
	msgUnauthorized = "Unauthorized"
	msgForbidden    = "Forbidden. Admin access required."
	msgInternal     = "Internal server error"
	msgInvalidJSON  = "Invalid JSON body"
	msgNotFound     = "Not found"
	msgContentType  = "Content-Type must be application/json"
)

// maxJSONBodyBytes bounds request bodies; test run reports may be up to 1 MiB.
const maxJSONBodyBytes = 2 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
// Bodies must be sent as application/json so simple cross-site posts cannot reach a handler.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		WriteError(w, http.StatusUnsupportedMediaType, msgContentType)
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

func isJSONContentType(v string) bool {
	mediaType, _, err := mime.ParseMediaType(v)
	return err == nil && mediaType == "application/json"
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteSuccess writes {"success": true, ...payload}.
func WriteSuccess(w http.ResponseWriter, code int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	WriteJSON(w, code, body)
}

// WriteError writes {"success": false, "error": message}.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, map[string]any{"success": false, "error": message})
}

// writeServiceError maps a service error onto the envelope. Anything that is
// not a categorized AppError is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		WriteError(w, http.StatusBadRequest, publicOr(err, "Invalid request"))
	case apperrors.ErrCodeNotFound:
		WriteError(w, http.StatusNotFound, publicOr(err, msgNotFound))
	case apperrors.ErrCodeUnauthorized:
		WriteError(w, http.StatusUnauthorized, msgUnauthorized)
	case apperrors.ErrCodeForbidden:
		WriteError(w, http.StatusForbidden, msgForbidden)
	case apperrors.ErrCodeRateLimited:
		WriteError(w, http.StatusTooManyRequests, publicOr(err, "Too many requests"))
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		WriteError(w, http.StatusConflict, publicOr(err, "Conflict"))
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}

func publicOr(err error, fallback string) string {
	if msg := apperrors.PublicMessage(err); msg != "" {
		return msg
	}
	return fallback
}
