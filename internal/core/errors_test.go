package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := ErrValidation(CodeInvalidConfig, "namespace is required")
	want := "[validation] INVALID_CONFIG: namespace is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := ErrCluster(CodeCommandFailed, "oc get route failed").WithCause(errors.New("exit status 1"))
	if wrapped.Unwrap() == nil {
		t.Error("Unwrap() = nil, want cause")
	}
}

func TestDomainError_Is(t *testing.T) {
	err := fmt.Errorf("submitting run: %w", ErrAuth("token rejected"))

	var domErr *DomainError
	if !errors.As(err, &domErr) {
		t.Fatal("errors.As failed")
	}
	if !errors.Is(err, ErrAuth("different message")) {
		t.Error("errors.Is should match on category+code")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(ErrValidation("X", "bad input")) {
		t.Error("validation errors should not be retryable")
	}
	if !IsRetryable(ErrCluster(CodeCommandFailed, "transient")) {
		t.Error("cluster errors should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ErrTimeout("monitoring period elapsed"), 2},
		{fmt.Errorf("wrapped: %w", ErrTimeout("deadline")), 2},
		{ErrExecution(CodeRunFailed, "pipeline failed"), 1},
		{errors.New("plain"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGetCategory_Plain(t *testing.T) {
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Error("plain errors should map to internal category")
	}
}
