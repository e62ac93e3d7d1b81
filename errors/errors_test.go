package errors

import (
	"fmt"
	"testing"
)

func TestIncidentError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeNotFound, "incident not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeInternal, "store operation failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeInternal) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("id", int64(7)).WithDetail("actor", "admin")
	if detailed.Details["actor"] != "admin" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test IncidentNotFound
	err := IncidentNotFound(42)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Details["id"] != int64(42) {
		t.Error("IncidentNotFound should include id detail")
	}

	// Test MissingField
	err = MissingField("title")
	if err.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, err.Code)
	}
	if err.Details["field"] != "title" {
		t.Error("MissingField should include field detail")
	}

	// Test InvalidState
	err = InvalidState("archived", []string{"pending", "in_progress", "resolved"})
	if err.Code != ErrCodeInvalidState {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidState, err.Code)
	}
	if err.Details["state"] != "archived" {
		t.Error("InvalidState should include state detail")
	}
}
