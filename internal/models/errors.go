package models

import "errors"

// ValidationError reports rejected request input. Handlers map it to a
// client error status instead of a server failure.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError returns a ValidationError for field with a message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
