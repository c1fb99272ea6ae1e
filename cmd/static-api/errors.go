package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/static-api/types"
)

// CLIError represents a user-friendly CLI error with context and suggestions
type CLIError struct {
	Operation   string   // The operation that failed (e.g., "show", "export")
	Cause       string   // The underlying cause (e.g., "collection not found")
	Details     string   // Additional technical details
	Suggestions []string // Helpful suggestions for the user
	Underlying  error    // Original error for debugging
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}

	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}

	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return msg.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError creates an error for validation failures
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewStoreError creates an error for store-related issues, describing the
// failure by its kind
func NewStoreError(operation string, underlying error, suggestions ...string) *CLIError {
	cause := "store operation failed"
	details := ""

	if underlying != nil {
		details = underlying.Error()

		switch types.KindOf(underlying) {
		case types.KindNotFound:
			cause = "resource not found"
		case types.KindParse:
			cause = "collection file is not a JSON array"
		case types.KindInvalid:
			cause = "invalid collection name or data"
		case types.KindConflict:
			cause = "record id conflict"
		case types.KindLock:
			cause = "collection is locked by another operation"
		case types.KindIO:
			if strings.Contains(strings.ToLower(details), "permission denied") {
				cause = "insufficient permissions to access the data directory"
			}
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps an existing error with CLI-friendly context
func WrapError(operation string, err error, suggestions ...string) error {
	if err == nil {
		return nil
	}

	// If it's already a CLIError, just update the operation
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}

	return NewStoreError(operation, err, suggestions...)
}

// Common error messages and suggestions
var (
	CommonSuggestions = struct {
		CheckDataDir     string
		CheckCollections string
		CheckConfig      string
		RunHelp          string
		CheckPerms       string
		CheckPort        string
	}{
		CheckDataDir:     "Verify --data-dir points to the directory holding the collection files",
		CheckCollections: "Run 'static-api collections' to see existing collections",
		CheckConfig:      "Check your configuration file or STATIC_API_* environment variables",
		RunHelp:          "Run command with --help for usage information",
		CheckPerms:       "Check file permissions and directory access",
		CheckPort:        "Check that no other process is listening on the port, or pass --port",
	}
)
