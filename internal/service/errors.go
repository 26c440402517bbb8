package service

import "errors"

var (
	// ErrLeadNotFound is returned when no lead exists for the given id or token
	ErrLeadNotFound = errors.New("lead not found")

	// ErrAlreadyConverted is returned when the one-shot confirmation guard
	// has already been tripped for a lead
	ErrAlreadyConverted = errors.New("lead already converted to a booking")
)

// ValidationError reports a malformed request payload, e.g. a missing
// billing sub-field for the chosen address shape.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
