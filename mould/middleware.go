// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import "context"

// TaskOutcome summarizes how one active task (a request, or a resumed
// stream) ended, for logging/metrics middleware. It mirrors the terminal
// Output events of §3: exactly one of these describes every way a task can
// conclude.
type TaskOutcome string

const (
	OutcomeDone      TaskOutcome = "done"
	OutcomeReject    TaskOutcome = "reject"
	OutcomeFail      TaskOutcome = "fail"
	OutcomeSuspended TaskOutcome = "suspended"
	OutcomeCanceled  TaskOutcome = "canceled"
)

// TaskHandler runs one active task (from Prepare/resume through its
// terminal event) and reports how it ended.
type TaskHandler[S any] func(ctx context.Context) (TaskOutcome, error)

// Middleware wraps a TaskHandler, generalized from the teacher SDK's
// Middleware[*mcp.ServerSession]/AddReceivingMiddleware pattern
// (examples/logging-middleware/main.go) so a server can add
// logging/metrics/tracing around every dispatched (service, action)
// without the dispatcher itself knowing about any of it. Unlike the
// teacher's per-RPC-call middleware, a mould task may span several
// inbound/outbound events (a whole streaming exchange), so middleware
// timing covers the task's full lifetime, not one message.
type Middleware[S any] func(service, action string, resumed bool, next TaskHandler[S]) TaskHandler[S]

// chainMiddleware composes middlewares so the first one in the slice runs
// outermost (wraps everything else).
func chainMiddleware[S any](service, action string, resumed bool, handler TaskHandler[S], mws []Middleware[S]) TaskHandler[S] {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](service, action, resumed, handler)
	}
	return handler
}
