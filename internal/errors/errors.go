// Package errors provides a lightweight structured error type (RunnerError)
// for category-based classification and retry semantics across the pipeline,
// daemon and CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a RunnerError for exit codes and retry decisions.
type ErrorCategory string

const (
	// User-facing manifest and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategoryCheckout ErrorCategory = "checkout"
	CategoryNetwork  ErrorCategory = "network"

	// Build and processing errors
	CategoryProvision ErrorCategory = "provision"
	CategoryCommand   ErrorCategory = "command"
	CategoryDocTool   ErrorCategory = "doctool"
	CategoryStorage   ErrorCategory = "storage"

	// Runtime and infrastructure errors
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Aborts the build
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// RunnerError is a structured error with category, retryability, and context.
type RunnerError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	ExitCode  int           `json:"exit_code,omitempty"` // set for failed build commands
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RunnerError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *RunnerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *RunnerError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *RunnerError) WithContext(key string, value any) *RunnerError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithExitCode records a child process exit code on the error.
func (e *RunnerError) WithExitCode(code int) *RunnerError {
	e.ExitCode = code
	return e
}

// New creates a new RunnerError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RunnerError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Retryable creates a new retryable RunnerError.
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable RunnerError that wraps an existing error.
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *RunnerError {
	return &RunnerError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var re *RunnerError
	if stderrors.As(err, &re) {
		return re.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var re *RunnerError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// for unclassified errors.
func GetCategory(err error) ErrorCategory {
	var re *RunnerError
	if stderrors.As(err, &re) {
		return re.Category
	}
	return CategoryInternal
}

// GetExitCode extracts a recorded child exit code, or -1 when none is set.
func GetExitCode(err error) int {
	var re *RunnerError
	if stderrors.As(err, &re) && re.ExitCode != 0 {
		return re.ExitCode
	}
	return -1
}
