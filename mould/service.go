// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

// WorkerFactory constructs a fresh Worker for one request. Factories are
// called once per routed "request" (a "resume" reuses the parked Worker and
// calls no factory); the returned Worker is
// exclusive to that request (or, across a suspend, to that TaskId) until it
// finishes, is suspended, or is canceled.
type WorkerFactory[S any] func() Worker[S]

// Service is a namespace of actions (§4.5). Route is a pure function of the
// action name and must be safe for concurrent read — the Suite shares one
// Service instance across every session's dispatcher.
type Service[S any] interface {
	// Route resolves an action name to a WorkerFactory. It must not
	// return an error for "unknown action": return (nil, false) instead,
	// and the dispatcher emits KindActionNotFound. Route sees only the
	// action name, not the session, so it cannot check session
	// capabilities; a worker checks them in Prepare (see Require).
	Route(action string) (WorkerFactory[S], bool)
}

// Describer is an optional Service extension: a service that can describe
// an action's expected request shape for introspection/tooling. Suite.
// Describe uses this (see suite.go) to surface a JSON Schema inferred via
// the jsonschema package, without forcing the core dispatch path to know
// anything about payload shape (spec.md: "payload schema ... is out of
// scope" for dispatch, not for tooling).
type Describer interface {
	// Describe returns a human/tool-readable description of the named
	// action's request type, or (nil, false) if the service has none to
	// offer.
	Describe(action string) (any, bool)
}

// ActionMap is a convenience Service implementation: a plain map from
// action name to WorkerFactory, suitable for services with a small, static
// action list — the common case in the reference services (services/echo,
// services/count, services/longjob).
type ActionMap[S any] map[string]WorkerFactory[S]

func (m ActionMap[S]) Route(action string) (WorkerFactory[S], bool) {
	f, ok := m[action]
	return f, ok
}

// Perform adapts a PerformFunc into a WorkerFactory, for single-shot
// actions that don't need streaming (§4.8).
func Perform[S any](fn PerformFunc[S]) WorkerFactory[S] {
	return func() Worker[S] {
		return &singleShotWorker[S]{perform: fn}
	}
}
