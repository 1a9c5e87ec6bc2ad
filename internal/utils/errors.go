package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports input that breaks a data contract, such as a
// malformed month key in a dataset file.
type ValidationError struct {
	// Source names the input that failed, e.g. a file name.
	Source  string
	Message string
}

// Error returns the error message, prefixed with the source when known.
func (e *ValidationError) Error() string {
	if e.Source == "" {
		return e.Message
	}
	return e.Source + ": " + e.Message
}

// SourceValidationErrorf creates a ValidationError attributed to source.
func SourceValidationErrorf(source, format string, args ...interface{}) error {
	return &ValidationError{
		Source:  source,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
