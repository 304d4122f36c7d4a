// Package erruser carries errors meant for the person at the terminal. The
// message names what went wrong in plain words; the technical cause stays
// reachable through errors.Unwrap so the CLI can print it as "Details:".
package erruser

import (
	"errors"
	"fmt"
)

// Err pairs a user-facing message with the error that caused it.
type Err struct {
	Msg string
	Err error
}

// Error returns Msg alone.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the cause, if any.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error reading msg. A non-nil err is kept as the cause;
// with a nil err the result has nothing to unwrap.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}

// Newf is New with a formatted message.
func Newf(err error, format string, args ...any) error {
	return New(fmt.Sprintf(format, args...), err)
}

// Is reports whether err, or anything it wraps, is a user-facing error.
func Is(err error) bool {
	var e *Err
	return errors.As(err, &e)
}
