// Package errors provides a lightweight structured error type (ExportError)
// for category-based classification across the export pipeline and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of an export error for classification.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Source database errors
	CategorySource ErrorCategory = "source"

	// Pipeline stage errors
	CategoryHierarchy ErrorCategory = "hierarchy"
	CategoryTransform ErrorCategory = "transform"
	CategoryLayout    ErrorCategory = "layout"

	// Output and infrastructure errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded output
)

// ExportError is a structured error with category, severity, and context.
type ExportError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for ExportError.
type ContextFields map[string]any

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *ExportError) WithContext(key string, value any) *ExportError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ExportError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *ExportError {
	return &ExportError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new ExportError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *ExportError {
	return &ExportError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Newf creates a new ExportError with a formatted message.
func Newf(category ErrorCategory, severity ErrorSeverity, format string, args ...any) *ExportError {
	return New(category, severity, fmt.Sprintf(format, args...))
}
