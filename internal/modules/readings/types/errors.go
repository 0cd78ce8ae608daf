package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoReadings is returned by Latest when storage holds no readings.
var ErrNoReadings = errors.New("no data")

// MissingFieldsError reports required payload keys that were absent or empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing fields: " + strings.Join(e.Fields, ", ")
}

// ValidationError reports a field that was present but unusable.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// WriteError wraps a failed append.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "write reading: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps a failed read from storage.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// StorageUnavailableError is what the query path returns when storage could
// not be read. No partial result accompanies it.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }
