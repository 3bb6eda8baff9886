package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

var (
	// ErrInvalidSnapshotKind indicates a snapshot kind other than programs or services.
	ErrInvalidSnapshotKind = errors.New("invalid snapshot kind: must be 'programs' or 'services'")

	// ErrUnsupportedEncoding indicates a payload encoding this build cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported payload encoding")
)
