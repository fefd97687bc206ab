// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"log/slog"
	"time"
)

// DefaultLivenessPingInterval is how long a Session waits for inbound
// traffic on a NonBlockingFlow before proactively sending a liveness ping
// (spec.md §4.1). A Flow that doesn't implement NonBlockingFlow (e.g.
// transport/lines) is never pinged; liveness there is whatever the
// underlying io.ReadWriteCloser gives for free.
const DefaultLivenessPingInterval = 20 * time.Second

// DefaultMaxMissedPings bounds how many consecutive unanswered liveness
// ticks a Session tolerates before declaring the connection dead
// (KindConnectionBroken) instead of pinging forever.
const DefaultMaxMissedPings = 2

// Session (called "Context" in spec.md §4.7) owns one Flow and one user
// session value for the lifetime of a connection. It is exclusively owned
// by its Dispatcher; workers receive it only for the duration of a single
// Prepare/Realize call (spec.md §5: "Workers must not retain references to
// the session beyond their call").
//
// Unlike the original Rust implementation, which let Session Deref/DerefMut
// to the user context, mould's Session exposes the user state only through
// the explicit State accessor (spec.md Design Notes: "user code gets a
// mutable handle to the user state, never to transport internals").
type Session[S any] struct {
	flow   Flow
	state  S
	logger *slog.Logger

	pingInterval   time.Duration
	maxMissedPings int
	missedPings    int // disconnect accounting, see MissedPings
}

// NewSession builds a Session around a Flow and a freshly built user state
// value.
func NewSession[S any](flow Flow, state S, logger *slog.Logger) *Session[S] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session[S]{
		flow:           flow,
		state:          state,
		logger:         logger,
		pingInterval:   DefaultLivenessPingInterval,
		maxMissedPings: DefaultMaxMissedPings,
	}
}

// SetLiveness overrides the proactive-ping cadence and miss tolerance this
// Session drives a NonBlockingFlow with. NewDispatcher calls this from
// DispatcherOptions; zero values leave the existing setting (the package
// defaults) in place.
func (s *Session[S]) SetLiveness(pingInterval time.Duration, maxMissedPings int) {
	if pingInterval > 0 {
		s.pingInterval = pingInterval
	}
	if maxMissedPings > 0 {
		s.maxMissedPings = maxMissedPings
	}
}

// MissedPings reports how many consecutive liveness pings have gone
// unanswered since the last successful read, for the acceptor's disconnect
// accounting (SPEC_FULL.md §4).
func (s *Session[S]) MissedPings() int { return s.missedPings }

// State returns a mutable handle to the user session state. Workers must
// not retain it past the call they received it in.
func (s *Session[S]) State() *S { return &s.state }

// Who returns the underlying Flow's display identity, for logging.
func (s *Session[S]) Who() string { return s.flow.Who() }

// recv decodes one inbound event. A client "cancel" decodes to
// *Error{Kind: KindCanceled}, per spec.md §4.7. Over a NonBlockingFlow, recv
// drives the proactive liveness ping spec.md §4.1 requires instead of just
// passively trusting the transport's own read deadline.
func (s *Session[S]) recv(ctx context.Context) (*input, error) {
	nb, ok := s.flow.(NonBlockingFlow)
	if !ok {
		return s.recvBlocking(ctx)
	}
	return s.recvWithLiveness(ctx, nb)
}

func (s *Session[S]) recvBlocking(ctx context.Context) (*input, error) {
	content, ok, err := s.flow.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(KindConnectionClosed, "peer closed the connection")
	}
	return decode(content)
}

// recvWithLiveness polls a NonBlockingFlow, sending a ping every time
// PullNonBlocking reports ErrNotReady (nothing arrived within pingInterval)
// and giving up once maxMissedPings consecutive pings go unanswered.
func (s *Session[S]) recvWithLiveness(ctx context.Context, nb NonBlockingFlow) (*input, error) {
	for {
		content, ok, err := nb.PullNonBlocking(ctx, s.pingInterval)
		if err != nil {
			if !IsNotReady(err) {
				return nil, err
			}
			s.missedPings++
			if s.missedPings > s.maxMissedPings {
				return nil, wrapErr(KindConnectionBroken, "peer did not respond to liveness pings", err)
			}
			if perr := nb.SendPing(ctx); perr != nil {
				return nil, perr
			}
			continue
		}
		s.missedPings = 0
		if !ok {
			return nil, newErr(KindConnectionClosed, "peer closed the connection")
		}
		return decode(content)
	}
}

// recvRequestOrResume accepts only "request" or "resume" (Idle state,
// §4.8). Any other input is KindUnexpectedState.
func (s *Session[S]) recvRequestOrResume(ctx context.Context) (*input, error) {
	in, err := s.recv(ctx)
	if err != nil {
		return nil, err
	}
	if in.kind != inRequest && in.kind != inResume {
		return nil, newErr(KindUnexpectedState, "unexpected state")
	}
	return in, nil
}

// recvNextOrSuspend accepts only "next" or "suspend" (Streaming state,
// §4.8). Any other input is KindUnexpectedState.
func (s *Session[S]) recvNextOrSuspend(ctx context.Context) (*input, error) {
	in, err := s.recv(ctx)
	if err != nil {
		return nil, err
	}
	if in.kind != inNext && in.kind != inSuspend {
		return nil, newErr(KindUnexpectedState, "unexpected state")
	}
	return in, nil
}

// send encodes and pushes one Output. Transport failures surface as
// KindConnectionBroken (spec.md calls this FlowBroken).
func (s *Session[S]) send(ctx context.Context, out Output) error {
	content, err := encode(out)
	if err != nil {
		return err
	}
	if err := s.flow.Push(ctx, content); err != nil {
		if me, ok := err.(*Error); ok {
			return me
		}
		return ErrConnectionBroken(err)
	}
	return nil
}
