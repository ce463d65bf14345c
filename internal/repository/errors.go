package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// PersistenceError wraps any failure of the backing store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
