package core

import (
	"errors"
	"fmt"
)

// Predefined errors returned by engine operations.
var (
	// ErrNotFound is returned when a Load or Save targets a row that does
	// not exist (or is outside the caller's tenant scope).
	ErrNotFound = errors.New("record not found")
	// ErrUnknownEntity is returned when an entity name has no registered descriptor.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrTxDone is returned when operating on a finished transaction.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
)

// ValidationError reports a caller mistake detected before any statement
// executes: a malformed list value, a wrong argument count to a range
// operator, an unknown filter operator, an invalid field name.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SecurityError reports a tenant-ownership violation. It is raised before
// the offending write statement is built; the call aborts with no effect.
type SecurityError struct {
	Msg string
}

func (e *SecurityError) Error() string { return e.Msg }

// ReferenceError reports a delete blocked by live dependent rows.
type ReferenceError struct {
	Table string
	Count int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("cannot delete: %d dependent record(s) in %s", e.Count, e.Table)
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: message, err: err}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
