// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

// Rights is a marker interface for capability tokens. Deployments define
// their own right type, typically an enum of string/int constants
// implementing this interface with a zero-cost method.
//
//	type Right string
//	func (Right) IsRight() {}
//	const (
//	    RightReadFiles  Right = "read_files"
//	    RightWriteFiles Right = "write_files"
//	)
type Rights interface {
	IsRight()
}

// HasRight is implemented by session (user) state to report whether it
// holds a given capability. The framework never interprets the meaning of a
// right; it only asks the session to judge.
type HasRight interface {
	HasRight(right Rights) bool
}

// Require derives an AccessDenied error from HasRight.Require(session,
// right): workers call this before doing privileged work. The framework
// provides only this gate; policy belongs to session state and services
// (spec.md Design Notes: "do not bake policy into the framework").
func Require(session HasRight, right Rights) error {
	if session.HasRight(right) {
		return nil
	}
	return newErr(KindAccessDenied, "access denied")
}
