package core

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrNullInput is returned when an identifying argument of a data access call is missing.
var ErrNullInput = errors.New("Supplied parameter was null")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Unwrap() error { return err.Err }

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, fld := range err.Fields {
		msgs = append(msgs, fld.Error)
	}
	return strings.Join(msgs, "\n")
}

// ArgumentError reports an invalid argument passed by the caller.
type ArgumentError struct {
	Err error
	msg string
}

func NewArgumentError(err error, msg string) error {
	return &ArgumentError{Err: err, msg: msg}
}

func (err *ArgumentError) Error() string {
	if err.msg == "" {
		return err.Err.Error()
	}
	return err.Err.Error() + ": " + err.msg
}

func (err *ArgumentError) Cause() error  { return err.Err }
func (err *ArgumentError) Unwrap() error { return err.Err }

// NotFoundError is the type of the "not found" sentinel error of each entity.
type NotFoundError struct {
	Entity string
}

func (err *NotFoundError) Error() string { return err.Entity + " not found" }

// AlreadyExistsError is the type of the "already exists" sentinel error of each entity.
type AlreadyExistsError struct {
	Entity string
}

func (err *AlreadyExistsError) Error() string { return err.Entity + " already exists" }

// detailedError replaces the message of a sentinel error while keeping it as the cause.
type detailedError struct {
	err error
	msg string
}

// WithDetail returns an error whose message is msg and whose cause is err.
func WithDetail(err error, msg string) error {
	return errors.WithStack(&detailedError{err: err, msg: msg})
}

func (err *detailedError) Error() string { return err.msg }
func (err *detailedError) Cause() error  { return err.err }
func (err *detailedError) Unwrap() error { return err.err }

// Message returns the message of the outermost detailed error in the cause chain of err,
// or the message of its root cause.
func Message(err error) string {
	for e := err; e != nil; {
		if d, ok := e.(*detailedError); ok {
			return d.msg
		}
		c, ok := e.(interface{ Cause() error })
		if !ok {
			break
		}
		e = c.Cause()
	}
	return errors.Cause(err).Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
