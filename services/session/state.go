// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package session defines the per-connection state shared by the reference
// services (services/echo, services/count, services/longjob) and by
// cmd/mould-server. A real deployment defines its own state type; this one
// exists so the reference services and the demo server agree on a concrete
// S without every package needing its own copy.
package session

import (
	"github.com/mouldproto/mould/mould"
	"github.com/mouldproto/mould/permission"
)

// State is built once per connection by mould.Builder at accept time.
type State struct {
	// Who is the display identity of the connecting principal, set from
	// the verified token's subject (or "anonymous" when the deployment
	// runs without authorization).
	Who string
	// Scopes grants the rights this connection holds.
	Scopes permission.Scopes
}

// HasRight implements mould.HasRight by delegating to the embedded scope
// set.
func (s *State) HasRight(right mould.Rights) bool {
	return s.Scopes.HasRight(right)
}

var _ mould.FlowBuilder[State] = Builder{}

// Builder constructs fresh State values for Suite.BuildSession. The zero
// value grants no scopes; callers that authenticate connections set
// Verifier so BuildFromFlow can turn a connection's bearer token into
// Who/Scopes — see cmd/mould-server.
type Builder struct {
	// Next, if set, is called once per accepted connection to produce its
	// initial state. If nil and Verifier is also nil, Build returns an
	// anonymous, scope-less State.
	Next func() State

	// Verifier, if set, validates the bearer token a mould.Credentialed
	// Flow presented and populates Who/Scopes from its claims. A
	// Credentialed Flow with no token, or any Flow that isn't Credentialed,
	// still gets a State — anonymous and scope-less — rather than a
	// rejected connection; a service that requires a scope rejects it at
	// mould.Require time instead.
	Verifier *permission.Verifier
}

func (b Builder) Build() State {
	if b.Next != nil {
		return b.Next()
	}
	return State{Who: "anonymous"}
}

// BuildFromFlow implements mould.FlowBuilder: when Verifier is set and flow
// presented a bearer token, the token's claims populate Who/Scopes; anything
// short of that (no Verifier, no token, or a token that fails verification)
// falls back to Build.
func (b Builder) BuildFromFlow(flow mould.Flow) State {
	if b.Verifier == nil {
		return b.Build()
	}
	cred, ok := flow.(mould.Credentialed)
	if !ok || cred.BearerToken() == "" {
		return b.Build()
	}
	claims, err := b.Verifier.Verify(cred.BearerToken())
	if err != nil {
		return b.Build()
	}
	return State{Who: claims.Subject, Scopes: claims.Scopes}
}
