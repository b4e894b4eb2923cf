package errs

import (
	"fmt"
	"testing"
)

func TestValidationError_Accumulates(t *testing.T) {
	v := &ValidationError{}
	if v.Err() != nil {
		t.Fatal("empty ValidationError should yield nil")
	}

	v.Add("title", "cannot be empty")
	v.Add("priority", "unknown value %q", "asap")
	err := v.Err()
	if err == nil {
		t.Fatal("expected error after Add")
	}
	if len(v.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(v.Fields))
	}
	if !IsValidation(err) {
		t.Error("IsValidation should match")
	}
	if IsDomain(err) {
		t.Error("IsDomain should not match a ValidationError")
	}
}

func TestDomainError_Detection(t *testing.T) {
	err := Domain("quality score requires a completed assignment, status is %q", "in_progress")
	if !IsDomain(err) {
		t.Error("IsDomain should match")
	}
	if IsValidation(err) {
		t.Error("IsValidation should not match a DomainError")
	}

	wrapped := fmt.Errorf("set quality: %w", err)
	if !IsDomain(wrapped) {
		t.Error("IsDomain should match through wrapping")
	}
}

func TestNotFound_Detection(t *testing.T) {
	err := NotFound("task", 42)
	if !IsNotFound(err) {
		t.Error("IsNotFound should match")
	}
	if got, want := err.Error(), "task 42 not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if IsNotFound(fmt.Errorf("plain")) {
		t.Error("IsNotFound matched an unrelated error")
	}
}
