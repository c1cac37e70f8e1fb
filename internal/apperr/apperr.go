// Package apperr defines the error kinds shared by every service in the
// application.  Services return *Error values tagged with one of the
// sentinel kinds below so that handlers can map a failure to an HTTP status
// with errors.Is without knowing which service produced it.  The message of
// an *Error is meant to be shown to the user as-is.
package apperr

import "errors"

// ErrValidation marks a request rejected locally because a required field
// is empty or malformed.  Handlers translate it into HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrNotFound marks a missing document.  Handlers translate it into
// HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict marks an operation that lost against the current state of
// the store, for example reserving a spot that is no longer available.
// Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrBackend marks a failure of an external collaborator (database, broker,
// blob storage).  The collaborator's message is passed through unchanged.
// Handlers translate it into HTTP 502.
var ErrBackend = errors.New("backend error")

// Error is a classified application error.
type Error struct {
	Kind error  // one of the sentinel kinds above
	Msg  string // human readable message
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation returns an ErrValidation error with the given message.
func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

// NotFound returns an ErrNotFound error with the given message.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

// Conflict returns an ErrConflict error with the given message.
func Conflict(msg string) error { return &Error{Kind: ErrConflict, Msg: msg} }

// Backend wraps err as an ErrBackend error keeping its message verbatim.
// Errors that are already classified are returned unchanged; a nil err
// yields nil.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrBackend, Err: err}
}

// Message returns the user facing message of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
