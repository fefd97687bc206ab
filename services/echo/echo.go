// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package echo is a single-shot reference service: one request, one
// reply, no streaming. It exists to exercise the Shortcut path of the
// dispatcher (Prepare short-circuiting straight to done) the way a
// production deployment's simplest services do.
package echo

import (
	"encoding/json"

	"github.com/mouldproto/mould/jsonschema"
	"github.com/mouldproto/mould/mould"
	"github.com/mouldproto/mould/permission"
	"github.com/mouldproto/mould/services/session"
)

// RightSay gates the "say" action (§4.6's permission gate example): a
// connection needs this scope to call echo.say. cmd/mould-server grants it
// to any token whose "scope" claim includes "echo:say".
const RightSay = permission.Scope("echo:say")

// Request is the payload shape the "say" action expects.
type Request struct {
	Text string `json:"text"`
}

// Reply is the payload shape the "say" action returns.
type Reply struct {
	Text string `json:"text"`
	Who  string `json:"who"`
}

// service wraps an ActionMap with Describer, so tooling can ask for the
// JSON Schema of an action's request shape (suite.Describe) without the
// dispatch path itself knowing anything about payload schemas.
type service struct {
	mould.ActionMap[session.State]
}

var _ mould.Describer = service{}

// Describe returns the inferred JSON Schema for the named action's request
// type, built via jsonschema.For the same way the teacher SDK infers tool
// input schemas from a Go type (mcp/tool.go).
func (service) Describe(action string) (any, bool) {
	if action != "say" {
		return nil, false
	}
	schema, err := jsonschema.For[Request](nil)
	if err != nil {
		return nil, false
	}
	return schema, true
}

// New builds the echo service: one action, "say", that reflects its input
// back to the caller along with the caller's session identity.
func New() mould.Service[session.State] {
	return service{mould.ActionMap[session.State]{
		"say": mould.Perform(say),
	}}
}

func say(sess *mould.Session[session.State], payload []byte) (any, error) {
	if err := mould.Require(sess.State(), RightSay); err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, mould.RejectErr("malformed request: %v", err)
	}
	if req.Text == "" {
		return nil, mould.RejectErr("text must not be empty")
	}
	return Reply{Text: req.Text, Who: sess.State().Who}, nil
}
