// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ws is the reference mould.Flow over WebSocket, the transport
// spec.md §4.1 describes as the protocol's primary binding: one text frame
// per wire event, server-initiated pings for liveness, non-text frames
// rejected as bad message encoding.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mouldproto/mould/internal/netutil"
	"github.com/mouldproto/mould/mould"
)

// DefaultPingInterval is how long a Flow waits for inbound traffic before
// sending its own ping, absent any traffic from the peer (spec.md §4.1).
const DefaultPingInterval = 20 * time.Second

// DefaultPongWait is how long the Flow waits for a pong (or any other
// traffic) after sending a ping before declaring the connection dead.
const DefaultPongWait = DefaultPingInterval + 10*time.Second

// Flow implements mould.Flow and mould.NonBlockingFlow over one
// *websocket.Conn. Construct with Accept (server side) or Dial (client
// side).
type Flow struct {
	conn        *websocket.Conn
	who         string
	pongWait    time.Duration
	bearerToken string

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
}

var _ mould.Flow = (*Flow)(nil)
var _ mould.NonBlockingFlow = (*Flow)(nil)
var _ mould.Credentialed = (*Flow)(nil)

// Options configures a Flow's liveness timing. A zero Options uses the
// package defaults.
type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = o.PingInterval + 10*time.Second
	}
	return o
}

// newFlow wires up the ping/pong handlers common to both Accept and Dial.
func newFlow(conn *websocket.Conn, who, bearerToken string, opts Options) *Flow {
	opts = opts.withDefaults()
	f := &Flow{
		conn:        conn,
		who:         who,
		pongWait:    opts.PongWait,
		bearerToken: bearerToken,
		closed:      make(chan struct{}),
	}
	conn.SetReadDeadline(time.Now().Add(f.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.pongWait))
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(f.pongWait))
		f.writeMu.Lock()
		defer f.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})
	return f
}

// Upgrader wraps gorilla/websocket's Upgrader with the subprotocol and
// origin policy mould servers use.
type Upgrader struct {
	websocket.Upgrader
}

// NewUpgrader builds an Upgrader that accepts the "mould" subprotocol from
// any origin. Callers wanting origin checks should set CheckOrigin on the
// embedded websocket.Upgrader directly.
func NewUpgrader() *Upgrader {
	return &Upgrader{
		Upgrader: websocket.Upgrader{
			Subprotocols:    []string{"mould"},
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Accept upgrades an HTTP request to a WebSocket connection and wraps it as
// a Flow. Callers typically do this inside an http.Handler, then hand the
// Flow to an mould.Acceptor via a transport/ws.Listener, or directly to
// mould.NewSession for a single-connection server.
func Accept(w http.ResponseWriter, r *http.Request, up *Upgrader, opts Options) (*Flow, error) {
	if up == nil {
		up = NewUpgrader()
	}
	bearerToken := bearerTokenFromHeader(r.Header.Get("Authorization"))
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	return newFlow(conn, netutil.Who(r.RemoteAddr), bearerToken, opts), nil
}

// bearerTokenFromHeader extracts the token from an "Authorization: Bearer
// <token>" header value, returning "" if the header is absent or not a
// bearer scheme.
func bearerTokenFromHeader(authorization string) string {
	const prefix = "Bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return ""
	}
	return authorization[len(prefix):]
}

// Dial connects to a mould WebSocket server as a client. header carries any
// request headers the server's Permission layer inspects at accept time —
// typically Authorization: Bearer <token> from a mouldauth.Handler.Exchange
// result — and may be nil.
func Dial(ctx context.Context, url string, dialer *websocket.Dialer, header http.Header, opts Options) (*Flow, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	d := *dialer
	d.Subprotocols = []string{"mould"}
	conn, resp, err := d.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	return newFlow(conn, url, bearerTokenFromHeader(header.Get("Authorization")), opts), nil
}

// Who returns the remote address (server side) or dial URL (client side)
// this Flow was constructed with.
func (f *Flow) Who() string { return f.who }

// BearerToken returns the token this Flow was constructed with, from the
// "Authorization: Bearer <token>" header on the accept or dial request, or
// "" if none was presented. Implements mould.Credentialed.
func (f *Flow) BearerToken() string { return f.bearerToken }

// Pull blocks for the next text frame. Control frames are not surfaced to
// the caller: pings/pongs are answered by the handlers installed in newFlow
// and otherwise ignored here. A binary (non-text) data frame is a protocol
// violation and becomes a BadMessageEncoding error.
func (f *Flow) Pull(ctx context.Context) (string, bool, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			f.conn.Close()
		case <-done:
		}
	}()

	for {
		mt, data, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", false, nil
			}
			return "", false, mould.ErrConnectionBroken(err)
		}
		switch mt {
		case websocket.TextMessage:
			return string(data), true, nil
		case websocket.BinaryMessage:
			return "", false, mould.ErrBadMessageEncoding(fmt.Errorf("unexpected binary frame"))
		default:
			// Control frames are handled by the installed handlers and
			// never reach here via ReadMessage; keep looping defensively.
			continue
		}
	}
}

// PullNonBlocking is not truly non-blocking over a single WebSocket
// connection (gorilla/websocket has no poll API), so it runs Pull with a
// deadline of wait and converts a timeout into ErrNotReady. This lets a
// Session's liveness loop (session.go's recvWithLiveness) drive its own
// ping cadence via SendPing rather than relying solely on the passive
// read-deadline/pong handler pair installed in newFlow.
func (f *Flow) PullNonBlocking(ctx context.Context, wait time.Duration) (string, bool, error) {
	f.conn.SetReadDeadline(time.Now().Add(wait))
	content, ok, err := f.Pull(ctx)
	f.conn.SetReadDeadline(time.Now().Add(f.pongWait))
	if err != nil {
		if ne, isNet := err.(interface{ Timeout() bool }); isNet && ne.Timeout() {
			return "", false, mould.ErrNotReady
		}
		if me, isM := err.(*mould.Error); isM && me.Cause != nil {
			if ne, isNet := me.Cause.(interface{ Timeout() bool }); isNet && ne.Timeout() {
				return "", false, mould.ErrNotReady
			}
		}
		return "", false, err
	}
	return content, ok, nil
}

// Push sends content as one text frame.
func (f *Flow) Push(ctx context.Context, content string) error {
	if deadline, ok := ctx.Deadline(); ok {
		f.conn.SetWriteDeadline(deadline)
		defer f.conn.SetWriteDeadline(time.Time{})
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	if err := f.conn.WriteMessage(websocket.TextMessage, []byte(content)); err != nil {
		return mould.ErrConnectionBroken(err)
	}
	return nil
}

// SendPing writes a ping control frame. A Session's liveness loop calls it
// each time PullNonBlocking reports ErrNotReady.
func (f *Flow) SendPing(ctx context.Context) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := f.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return mould.ErrConnectionBroken(err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (f *Flow) Close() error {
	var err error
	f.once.Do(func() {
		err = f.conn.Close()
		close(f.closed)
	})
	return err
}

// closedSignal is used by Listener to keep a connection's ServeHTTP call
// open until the Flow it published is Closed.
func (f *Flow) closedSignal() <-chan struct{} { return f.closed }
