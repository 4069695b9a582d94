// File: models/errors.go
package models

import "errors"

// Error kinds shared by every layer. Specific errors wrap one of these with %w
// so callers can classify them with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failure")
)
