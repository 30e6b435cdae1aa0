package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned for kind or family names outside the closed set.
	ErrUnknownKind = errors.New("unknown settings kind")
	// ErrInvalidOperation is returned when an operation does not apply to the current state.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidDuration wraps every duration parsing failure.
	ErrInvalidDuration = errors.New("invalid duration")
)

// ValidationError reports a settings field that violates its kind's constraints.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field.Label(), e.Reason)
}
