package document

import (
	"errors"
	"fmt"
)

// User-facing payload validation messages
const (
	MsgNoData         = "No data member was found in the request."
	MsgNoType         = "All data payloads must contain the `type` member."
	MsgDataCollection = "The data member must be a single resource object."
	MsgMalformed      = "The request body is not a valid JSON:API document."
)

// ValidationError reports a malformed or incomplete request payload
type ValidationError struct {
	Message string
	Err     error
}

// NewValidationError creates a validation error with a user-facing message
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying decode error, if any
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is or wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
