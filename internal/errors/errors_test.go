package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodeInternal, "load users")

	if err.Error() != "load users: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestCodeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("Agent not found"))
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through fmt wrapping")
	}
	if PublicMessage(wrapped) != "Agent not found" {
		t.Errorf("unexpected public message %q", PublicMessage(wrapped))
	}
	if !IsForbidden(Forbidden("nope")) || !IsUnauthorized(Unauthorized("who")) || !IsRateLimited(RateLimited("slow")) {
		t.Error("code helpers should match their constructors")
	}
	if GetCode(errors.New("plain")) != "" || PublicMessage(errors.New("plain")) != "" {
		t.Error("plain errors carry no code or public message")
	}
	if GetField(ValidationField("email", "bad")) != "email" {
		t.Error("field should be preserved")
	}
	if Validationf("limit %d", 5).Message != "limit 5" {
		t.Error("Validationf should format")
	}
}
