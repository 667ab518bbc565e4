package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Update when a document id no longer exists.
var ErrNotFound = errors.New("record not found")

// StoreError wraps an underlying persistence failure (connectivity,
// constraint violation, malformed filter) with the operation that hit it.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op, collection string, err error) *StoreError {
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// IsNotFoundError checks if error represents a missing document.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreError checks if error originated in the persistence layer.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
