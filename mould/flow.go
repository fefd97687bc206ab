// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"time"
)

// Flow is the minimal transport contract a Session depends on: identity,
// pull one complete inbound message, push one complete outbound message.
// Concrete transports (see transport/ws, transport/lines) implement this
// against whatever framing they use.
type Flow interface {
	// Who returns a stable display identity for this connection, typically
	// a remote-address prefix. Used only for logging.
	Who() string

	// Pull obtains the next complete inbound message. It returns
	// (content, true, nil) for a message, ("", false, nil) for an orderly
	// close, or a non-nil *Error (KindConnectionBroken or
	// KindBadMessageEncoding) on failure.
	Pull(ctx context.Context) (content string, ok bool, err error)

	// Push sends one complete outbound message.
	Push(ctx context.Context, content string) error
}

// NonBlockingFlow is implemented by transports that can report "no data
// right now" without blocking forever, so a Session can interleave a
// liveness ping (spec.md §4.1). PullNonBlocking returns (_, _, ErrNotReady)
// when nothing arrives within wait.
type NonBlockingFlow interface {
	Flow
	// PullNonBlocking behaves like Pull but gives up and returns
	// ErrNotReady after wait if no inbound message arrives, instead of
	// blocking indefinitely. The caller (Session.recvWithLiveness) uses
	// the gap to send a ping and try again.
	PullNonBlocking(ctx context.Context, wait time.Duration) (content string, ok bool, err error)

	// SendPing writes a liveness ping. Only called after a PullNonBlocking
	// timeout.
	SendPing(ctx context.Context) error
}

// Credentialed is implemented by transports that can carry a bearer token
// from the connection's handshake (an Authorization header on a WebSocket
// upgrade, typically). A Builder that also implements FlowBuilder uses this
// to populate session state's rights at accept time instead of building an
// always-anonymous value (spec.md §2's demo deployment: mould-client obtains
// a token via mouldauth before dialing, so Permission has something to
// check).
type Credentialed interface {
	// BearerToken returns the token presented at connection time, or "" if
	// none was presented.
	BearerToken() string
}

// ErrNotReady signals "no data presently" from a NonBlockingFlow. It is not
// surfaced to Session callers; the Session's liveness loop
// (recvWithLiveness) treats it as "try a ping, then pull again."
var ErrNotReady = newErr(KindConnectionBroken, "not ready")

// IsNotReady reports whether err is the NonBlockingFlow "no data yet" signal.
func IsNotReady(err error) bool {
	return err == ErrNotReady
}

// ErrConnectionBroken is returned by Flow implementations when the
// underlying transport fails.
func ErrConnectionBroken(cause error) error {
	return wrapErr(KindConnectionBroken, "connection broken", cause)
}

// ErrBadMessageEncoding is returned by Flow implementations when an inbound
// frame is not valid UTF-8 text (or otherwise not a text message).
func ErrBadMessageEncoding(cause error) error {
	return wrapErr(KindBadMessageEncoding, "bad message encoding", cause)
}

// ErrConnectionClosed is returned by a Listener when a caller tries to
// Accept from one that has already been closed.
func ErrConnectionClosed() error {
	return newErr(KindConnectionClosed, "listener closed")
}
