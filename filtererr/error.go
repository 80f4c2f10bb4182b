// Package filtererr defines the document-fatal error returned by the
// content filters. Local rejections (a single tag, declaration or rule)
// never surface as errors; only failures that abort a whole filter pass
// do.
package filtererr

import (
	"errors"

	"golang.org/x/net/html"
)

// Sentinel kinds, matched with errors.Is.
var (
	ErrCharset  = errors.New("charset")
	ErrSyntax   = errors.New("syntax")
	ErrIO       = errors.New("i/o")
	ErrRejected = errors.New("rejected")
)

// Error is a document-fatal filter error. The caller renders it to the
// user instead of the filtered content.
type Error struct {
	// Reason is a short machine-oriented reason, e.g. "charset-mismatch".
	Reason string

	// HTMLExplanation is Explanation made safe for inclusion in HTML.
	HTMLExplanation string

	// Explanation is the raw human readable explanation.
	Explanation string

	kind error
	err  error
}

// New creates an Error of the given kind.
func New(kind error, reason, explanation string) *Error {
	return &Error{
		Reason:          reason,
		HTMLExplanation: html.EscapeString(explanation),
		Explanation:     explanation,
		kind:            kind,
	}
}

// Wrap creates an Error of the given kind caused by err.
func Wrap(kind error, reason string, err error) *Error {
	e := New(kind, reason, err.Error())
	e.err = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Explanation == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Explanation
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

// Is allows errors.Is to match against the sentinel kinds.
func (e *Error) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// AsError returns err as an *Error if it is one.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
