/*
errors.go - Error types for the eligibility engine

ERROR CATEGORIES:
  1. Input errors - malformed or missing RequestFacts, future dates, unknown
     enum values. Reported as a list of field-level messages, before any
     motive rule runs.
  2. Configuration errors - out-of-range policy values. Detected at Load and
     fatal to startup.

Everything else that goes wrong inside Evaluate is turned into an
evaluation_error Verdict and never reaches the caller as an error.
*/
package eligibility

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is wrapped by every *InputError.
	ErrInvalidInput = errors.New("invalid request facts")

	// ErrInvalidConfiguration is wrapped by every *ConfigurationError.
	ErrInvalidConfiguration = errors.New("invalid policy configuration")
)

// =============================================================================
// INPUT ERRORS
// =============================================================================

// FieldError describes one problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// InputError lists every field problem found in a RequestFacts.
type InputError struct {
	Fields []FieldError
}

func (e *InputError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Add appends a field error.
func (e *InputError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one field error.
func (e *InputError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// ConfigurationError reports a policy value that cannot be used.
type ConfigurationError struct {
	Key    string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidConfiguration, e.Key, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// IsInputError reports whether err was caused by bad request facts.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigurationError reports whether err was caused by a bad policy value.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}
