package ordered

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every lookup that misses.
var ErrNotFound = errors.New("record not found")

// ValidationError reports client-correctable input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// StorageError wraps a driver failure with the store operation it broke.
type StorageError struct {
	Resource string
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Resource, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func notFound(resource string, id int64) error {
	return fmt.Errorf("%s %d: %w", resource, id, ErrNotFound)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
