// Package runerrors contains the error types used to decide how far a failure propagates
// during a benchmark run.
//
// A Fatal error aborts the unit of work that produced it (a worker, or a session before its
// workers were spawned). A Recoverable error is logged and the unit carries on. Errors that
// are neither are treated as fatal by callers.
//
// If several errors occur while tearing something down, the function doing the teardown
// should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package runerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrFatal marks an error that must stop the unit of work that produced it.
type ErrFatal struct {
	Err error
}

func (err *ErrFatal) Error() string {
	return fmt.Sprintf("fatal: %v", err.Err)
}

func (err *ErrFatal) Unwrap() error { return err.Err }

func (err *ErrFatal) Cause() error { return err.Err }

// ErrRecoverable marks an error that is logged and otherwise ignored.
type ErrRecoverable struct {
	Err error
}

func (err *ErrRecoverable) Error() string {
	return fmt.Sprintf("recoverable: %v", err.Err)
}

func (err *ErrRecoverable) Unwrap() error { return err.Err }

func (err *ErrRecoverable) Cause() error { return err.Err }

// Fatal wraps err in an *ErrFatal. Returns nil if err is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &ErrFatal{Err: err}
}

// Recoverable wraps err in an *ErrRecoverable. Returns nil if err is nil.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &ErrRecoverable{Err: err}
}

// IsFatal returns true if any error in the chain is an *ErrFatal.
func IsFatal(err error) bool {
	var e *ErrFatal
	return errors.As(err, &e)
}

// IsRecoverable returns true if any error in the chain is an *ErrRecoverable
// and no *ErrFatal wraps it.
func IsRecoverable(err error) bool {
	if IsFatal(err) {
		return false
	}
	var e *ErrRecoverable
	return errors.As(err, &e)
}

// ErrNotFound is returned whenever some schema object isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Object type, e.g., "table" or "column"
	Value   string // Object name, e.g., "users"
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("%s %q does not exist", err.Type, err.Value)
	} else {
		s = fmt.Sprintf("%q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}

// ErrInvalidArgument is returned on an invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "database.type"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrNotSupported is returned when a database dialect cannot perform an action.
type ErrNotSupported struct {
	Dialect string
	Action  string
}

func (err *ErrNotSupported) Error() string {
	return fmt.Sprintf("%s does not support %s", err.Dialect, err.Action)
}

// IsNotFound returns true if any error in the chain is an *ErrNotFound.
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsNotSupported returns true if any error in the chain is an *ErrNotSupported.
func IsNotSupported(err error) bool {
	var e *ErrNotSupported
	return errors.As(err, &e)
}
