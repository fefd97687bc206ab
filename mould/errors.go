// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import "fmt"

// Kind discriminates the error taxonomy a dispatcher branches on: whether to
// terminate the connection, emit a fail and continue, emit a reject, or (for
// Canceled) emit nothing at all.
type Kind int

const (
	// KindConnectionClosed means the peer closed the connection in an
	// orderly way. Fatal to the session.
	KindConnectionClosed Kind = iota
	// KindConnectionBroken means the transport failed (I/O error, reset).
	// Fatal to the session.
	KindConnectionBroken
	// KindBadMessageEncoding means a frame was not valid UTF-8 text.
	KindBadMessageEncoding
	// KindUnexpectedState means the input event is illegal for the
	// dispatcher's current state.
	KindUnexpectedState
	// KindIllegalEventName means the wire "event" field names an event
	// this protocol doesn't define.
	KindIllegalEventName
	// KindSerdeFailed means a payload didn't decode into the shape the
	// codec expected.
	KindSerdeFailed
	// KindServiceNotFound means a request named a service the Suite
	// doesn't have.
	KindServiceNotFound
	// KindActionNotFound means a request named an action the Service
	// doesn't route.
	KindActionNotFound
	// KindAccessDenied means a Permission.Require check failed.
	KindAccessDenied
	// KindCannotResume means a resume named an unknown TaskId.
	KindCannotResume
	// KindCannotSuspend means the suspended-workers table was full.
	KindCannotSuspend
	// KindCanceled means the client sent cancel. The dispatcher emits no
	// output for this kind; it is the only kind that does not.
	KindCanceled
	// KindReject is a worker-returned domain refusal, not a bug.
	KindReject
	// KindWorkerFault is any other worker error (an application fault).
	KindWorkerFault
)

func (k Kind) String() string {
	switch k {
	case KindConnectionClosed:
		return "connection_closed"
	case KindConnectionBroken:
		return "connection_broken"
	case KindBadMessageEncoding:
		return "bad_message_encoding"
	case KindUnexpectedState:
		return "unexpected_state"
	case KindIllegalEventName:
		return "illegal_event_name"
	case KindSerdeFailed:
		return "serde_failed"
	case KindServiceNotFound:
		return "service_not_found"
	case KindActionNotFound:
		return "action_not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindCannotResume:
		return "cannot_resume"
	case KindCannotSuspend:
		return "cannot_suspend"
	case KindCanceled:
		return "canceled"
	case KindReject:
		return "reject"
	case KindWorkerFault:
		return "worker_fault"
	default:
		return "unknown"
	}
}

// Error is mould's single error type. It carries a Kind discriminant so
// callers (chiefly the dispatcher) can branch without parallel error
// hierarchies for transport, codec, and worker failures.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, &mould.Error{Kind: mould.KindCanceled}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// newErr constructs an *Error with a kind and message.
func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// RejectErr builds a domain-refusal error for a Worker.Prepare or
// Worker.Realize to return: the dispatcher reports it as a "reject" event
// rather than "fail" (§4.8's reject/fail distinction — a refusal the caller
// could have anticipated, not an operational fault).
func RejectErr(format string, args ...any) error {
	return &Error{Kind: KindReject, Message: fmt.Sprintf(format, args...)}
}

// FaultErr builds an operational-fault error for a Worker.Prepare or
// Worker.Realize to return: the dispatcher reports it as a "fail" event.
func FaultErr(format string, args ...any) error {
	return &Error{Kind: KindWorkerFault, Message: fmt.Sprintf(format, args...)}
}

// wrapErr constructs an *Error wrapping a lower-level cause.
func wrapErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsFatal reports whether an error kind terminates the session (vs. being
// reported to the client as fail/reject while the session continues).
func (k Kind) IsFatal() bool {
	return k == KindConnectionClosed || k == KindConnectionBroken
}

// IsSilent reports whether the dispatcher must emit nothing for this kind
// (only true for client-initiated cancellation).
func (k Kind) IsSilent() bool {
	return k == KindCanceled
}

// clientMessage extracts the text that should cross the wire in a fail or
// reject event: the plain Message (plus Cause, if any), never the
// kind-prefixed Error() form, so "service not found" reaches the client as
// exactly that rather than "service_not_found: service not found".
func clientMessage(err error) string {
	me, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	if me.Cause != nil {
		return fmt.Sprintf("%s: %v", me.Message, me.Cause)
	}
	return me.Message
}
