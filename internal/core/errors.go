package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input or config
	ErrCatAuth       ErrorCategory = "auth"       // Token missing or rejected
	ErrCatCluster    ErrorCategory = "cluster"    // oc/kubectl invocation failure
	ErrCatAPI        ErrorCategory = "api"        // DSPA REST API failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation or monitoring deadline hit
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatExecution  ErrorCategory = "execution"  // Pipeline run failed
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrAuth creates an authentication error.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      "AUTH_FAILED",
		Message:   message,
		Retryable: false,
	}
}

// ErrCluster creates a cluster command error.
func ErrCluster(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCluster,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrAPI creates a DSPA API error.
func ErrAPI(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAPI,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// ExitCode maps an error to the process exit code: 0 for success,
// 2 for timeouts, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if IsCategory(err, ErrCatTimeout) {
		return 2
	}
	return 1
}

// Predefined error codes
const (
	CodeNoBinary         = "NO_KUBE_BINARY"
	CodeCommandFailed    = "COMMAND_FAILED"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodePipelineNotFound = "PIPELINE_NOT_FOUND"
	CodeVersionNotFound  = "VERSION_NOT_FOUND"
	CodeWorkflowNotFound = "WORKFLOW_NOT_FOUND"
	CodeSubmitFailed     = "SUBMIT_FAILED"
	CodeRunFailed        = "RUN_FAILED"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeUnknownProfile   = "UNKNOWN_PROFILE"
	CodeNoToken          = "NO_TOKEN"
	CodeParseFailed      = "PARSE_FAILED"
)
