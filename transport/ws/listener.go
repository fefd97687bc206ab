// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"net/http"

	"github.com/mouldproto/mould/mould"
)

// Listener is an http.Handler that upgrades every request to a WebSocket
// Flow and hands it to whoever calls Accept, adapting the teacher SDK's
// ServeHTTP-then-Accept split (mcp/websocket.go) into mould.Acceptor's pull
// model instead of a registered per-connection callback.
type Listener struct {
	Upgrader *Upgrader
	Options  Options

	accepted chan acceptResult
	closed   chan struct{}
}

type acceptResult struct {
	flow *Flow
	err  error
}

// NewListener builds a Listener ready to be mounted as an http.Handler and
// driven by an mould.Acceptor.
func NewListener() *Listener {
	return &Listener{
		Upgrader: NewUpgrader(),
		accepted: make(chan acceptResult),
		closed:   make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and publishes the resulting Flow to the
// next Accept call. It blocks for the lifetime of the connection, matching
// net/http's handler contract: the WebSocket stays open as long as this
// handler is running.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flow, err := Accept(w, r, l.Upgrader, l.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case l.accepted <- acceptResult{flow: flow}:
	case <-l.closed:
		flow.Close()
		return
	}

	// Hold the handler open until the connection's owner closes the Flow;
	// net/http tears down the upgraded connection the moment ServeHTTP
	// returns.
	<-flow.closedSignal()
}

// Accept implements mould.Listener: it blocks until ServeHTTP publishes a
// freshly upgraded Flow, the context is canceled, or Close is called.
func (l *Listener) Accept(ctx context.Context) (mould.Flow, error) {
	select {
	case res := <-l.accepted:
		return res.flow, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, mould.ErrConnectionClosed()
	}
}

// Close stops the Listener from accepting further connections. In-flight
// ServeHTTP calls whose Flow was never Accept-ed are closed immediately.
func (l *Listener) Close() error {
	close(l.closed)
	return nil
}
