// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"
)

// Listener is the minimal accept contract an Acceptor drives: produce Flows
// until it's told to stop. Concrete transports implement this (see
// transport/ws.Listener) by wrapping whatever
// their underlying accept loop is (net.Listener, a WebSocket upgrade
// handler, stdin).
type Listener interface {
	Accept(ctx context.Context) (Flow, error)
	Close() error
}

// AcceptorOptions configures an Acceptor.
type AcceptorOptions[S any] struct {
	Dispatcher DispatcherOptions[S]
	Logger     *slog.Logger
	// ConnLimiter, if non-nil, throttles how fast new connections are
	// handed off to a dispatcher; connections beyond the burst simply
	// wait for a token rather than being rejected. A nil limiter means
	// unlimited (the common case for trusted/internal deployments).
	ConnLimiter *rate.Limiter
}

// Acceptor accepts connections from a Listener and spawns one Dispatcher
// per connection, each on its own goroutine (§4.9, §5 "one independent
// execution context per connection"). A per-connection fault never takes
// down the acceptor: Serve recovers and logs, then keeps accepting.
type Acceptor[S any] struct {
	listener Listener
	suite    *Suite[S]
	opts     AcceptorOptions[S]
}

// NewAcceptor builds an Acceptor over a Listener and Suite.
func NewAcceptor[S any](listener Listener, suite *Suite[S], opts AcceptorOptions[S]) *Acceptor[S] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Acceptor[S]{listener: listener, suite: suite, opts: opts}
}

// Serve accepts connections until ctx is canceled or the Listener's Accept
// returns an error; no Accept error is retried. It blocks; callers typically
// run it in its own goroutine.
func (a *Acceptor[S]) Serve(ctx context.Context) error {
	for {
		if a.opts.ConnLimiter != nil {
			if err := a.opts.ConnLimiter.Wait(ctx); err != nil {
				return err
			}
		}

		flow, err := a.listener.Accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			a.opts.Logger.Error("accept failed", "error", err)
			return err
		}

		go a.serveOne(ctx, flow)
	}
}

// serveOne runs one connection's dispatcher to completion. It never panics
// the acceptor: a panicking worker is recovered and logged as a connection
// fault, matching spec.md §4.9 ("tolerate per-connection faults without
// terminating the acceptor").
func (a *Acceptor[S]) serveOne(ctx context.Context, flow Flow) {
	who := flow.Who()
	logger := a.opts.Logger.With("conn", who)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatcher panicked", "panic", r)
		}
	}()

	state := a.suite.BuildSession(flow)
	session := NewSession(flow, state, logger)
	dispatcher := NewDispatcher(session, a.suite, a.opts.Dispatcher)

	logger.Info("session started")
	err := dispatcher.Run(ctx)
	if err != nil && errors.Is(err, &Error{Kind: KindConnectionBroken}) && session.MissedPings() > 0 {
		logger.Info("session ended: forced disconnect (liveness ping unanswered)",
			"missed_pings", session.MissedPings())
	} else if err != nil && !errors.Is(err, &Error{Kind: KindConnectionClosed}) {
		logger.Info("session ended", "reason", err)
	} else {
		logger.Info("session ended")
	}
}
