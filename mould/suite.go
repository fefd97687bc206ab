// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import "sync"

// Builder constructs a fresh, per-connection session state value at accept
// time (§3: "opaque per-connection state built by a Builder at connection
// accept").
type Builder[S any] interface {
	Build() S
}

// BuilderFunc adapts a plain function into a Builder.
type BuilderFunc[S any] func() S

func (f BuilderFunc[S]) Build() S { return f() }

// FlowBuilder is an optional extension of Builder for deployments that
// derive session state from connection-time credentials (a bearer token
// presented on the upgrade request, see Credentialed) rather than always
// building an anonymous value. Suite.BuildSession prefers this over Build
// when the configured Builder implements it.
type FlowBuilder[S any] interface {
	BuildFromFlow(flow Flow) S
}

// Suite is the process-wide, immutable-after-startup registry mapping
// service name to Service, plus the Builder used to construct each
// connection's session state (§4.6). Register is startup-only; once an
// Acceptor begins serving, a Suite is shared read-only across every
// dispatcher, so Get/BuildSession/Describe need no locking beyond what
// guards the registration phase itself.
type Suite[S any] struct {
	mu       sync.RWMutex
	services map[string]Service[S]
	builder  Builder[S]
}

// NewSuite creates a Suite with the given Builder.
func NewSuite[S any](builder Builder[S]) *Suite[S] {
	return &Suite[S]{
		services: make(map[string]Service[S]),
		builder:  builder,
	}
}

// Register adds (or, last-write-wins, replaces) a named service. Intended
// for startup only, before the Acceptor begins serving (§4.6).
func (s *Suite[S]) Register(name string, svc Service[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[name] = svc
}

// Get looks up a service by name. It returns (nil, false) if none is
// registered, letting the dispatcher emit KindServiceNotFound.
func (s *Suite[S]) Get(name string) (Service[S], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[name]
	return svc, ok
}

// BuildSession constructs a fresh per-connection session value via the
// Suite's Builder. If the Builder also implements FlowBuilder, flow is
// passed through so state can be derived from the connection's credentials
// (e.g. a bearer token); otherwise Build is called and flow is ignored.
func (s *Suite[S]) BuildSession(flow Flow) S {
	if fb, ok := s.builder.(FlowBuilder[S]); ok {
		return fb.BuildFromFlow(flow)
	}
	return s.builder.Build()
}

// Describe surfaces introspection for a (service, action) pair, if the
// service implements Describer. It returns (nil, false) if the service is
// unknown, the action is unknown, or the service offers no description.
func (s *Suite[S]) Describe(service, action string) (any, bool) {
	svc, ok := s.Get(service)
	if !ok {
		return nil, false
	}
	d, ok := svc.(Describer)
	if !ok {
		return nil, false
	}
	return d.Describe(action)
}
