// Package errs defines the error taxonomy shared by the bridge components.
//
// Every failure that crosses a component boundary is an *Error carrying a Kind,
// so that callers can decide between retry, per-frame skip, turn abort and
// session teardown without string matching.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is used for errors that were not classified.
	KindUnknown Kind = iota
	// KindAuth indicates credential rejection.
	KindAuth
	// KindUpstream indicates a non-2xx or network failure calling the agent API.
	KindUpstream
	// KindStream indicates a malformed frame or a dropped stream.
	KindStream
	// KindProtocol indicates misuse of the session protocol by the downstream side.
	KindProtocol
	// KindTimeout indicates a suspended wait exceeded its deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	case KindStream:
		return "stream"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

var (
	ErrBusy                 = New(KindProtocol, "session", errors.New("turn already in progress"))
	ErrNoPendingElicitation = New(KindProtocol, "elicitation", errors.New("no pending elicitation"))
	ErrElicitationMismatch  = New(KindProtocol, "elicitation", errors.New("elicitation id does not match pending"))
	ErrDuplicateElicitation = New(KindProtocol, "elicitation", errors.New("elicitation already pending"))
	ErrSessionClosed        = New(KindProtocol, "session", errors.New("session closed"))
	ErrStreamInterrupted    = New(KindStream, "stream", errors.New("stream interrupted before end of turn"))
	ErrElicitationTimeout   = New(KindTimeout, "elicitation", errors.New("elicitation answer not received in time"))
	ErrTurnTimeout          = New(KindTimeout, "turn", errors.New("turn did not complete in time"))
)

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Status creates a classified error carrying an HTTP status code.
func Status(kind Kind, op string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

// Auth wraps err as an auth failure.
func Auth(op string, err error) *Error { return New(KindAuth, op, err) }

// Upstream wraps err as an upstream failure.
func Upstream(op string, err error) *Error { return New(KindUpstream, op, err) }

// Stream wraps err as a stream failure.
func Stream(op string, err error) *Error { return New(KindStream, op, err) }

// Protocol wraps err as a protocol failure.
func Protocol(op string, err error) *Error { return New(KindProtocol, op, err) }

// Timeout wraps err as a timeout.
func Timeout(op string, err error) *Error { return New(KindTimeout, op, err) }

// KindOf returns the kind of the first *Error in err's chain. Context deadline
// errors that were never classified are reported as KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Classify wraps err with kind unless it is already classified. Deadline errors
// are always classified as timeouts.
func Classify(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(op, err)
	}
	return New(kind, op, err)
}
