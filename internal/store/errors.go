package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// Error is a storage engine or I/O failure
type Error struct {
	Op         string
	Collection string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func storeError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Op: op, Collection: collection, Err: err}
}

func notFound(collection, id string) error {
	return fmt.Errorf("%w: no record found for ID: %s in %s", ErrNotFound, id, collection)
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreError returns true if the error is a storage failure
func IsStoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
