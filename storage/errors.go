package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// DuplicateKeyError reports an insert for a filename that already has a record.
type DuplicateKeyError struct {
	Filename string
	Err      error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("a record for %q already exists", e.Filename)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for transport layers.
func (e *DuplicateKeyError) ErrorKind() string { return "duplicate" }
