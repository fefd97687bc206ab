// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package permission provides a mould.Rights/mould.HasRight implementation
// backed by the "scope" claim of a validated JWT access token, for
// deployments that authenticate connections with OAuth2 bearer tokens (the
// teacher SDK's auth package, adapted as mouldauth, is the client side of
// the same flow).
package permission

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mouldproto/mould/mould"
)

// Scope is a mould.Rights value naming one OAuth scope string.
type Scope string

func (Scope) IsRight() {}

// Scopes holds the set of scopes a validated token grants, implementing
// mould.HasRight so session state can embed it directly.
type Scopes struct {
	granted map[string]struct{}
}

var _ mould.HasRight = Scopes{}

// ParseScopes splits a space-separated scope claim (RFC 6749 §3.3) into a
// Scopes set.
func ParseScopes(claim string) Scopes {
	s := Scopes{granted: make(map[string]struct{})}
	for scope := range strings.FieldsSeq(claim) {
		s.granted[scope] = struct{}{}
	}
	return s
}

// HasRight implements mould.HasRight: a Scope right is held iff its name is
// present in the set. Non-Scope right types are never held; a deployment
// mixing right kinds should compose HasRight implementations instead of
// relying on this one for everything.
func (s Scopes) HasRight(right mould.Rights) bool {
	scope, ok := right.(Scope)
	if !ok {
		return false
	}
	_, granted := s.granted[string(scope)]
	return granted
}

// Claims is the subset of a mould access token's claims session state is
// built from: who the session belongs to and what it's allowed to do.
type Claims struct {
	Subject string
	Scopes  Scopes
}

// Verifier validates a bearer token string and extracts Claims from it.
// Construct with NewHMACVerifier (shared-secret, matching the pattern the
// teacher's fake OAuth server uses for issuance). It is the only
// constructor, so only HS256 tokens are verified; asymmetric (RS256/ES256)
// issuers are not supported.
type Verifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewHMACVerifier builds a Verifier for HS256-signed tokens, the scheme a
// single-issuer deployment (internal/devauth's demo server, or a test fake)
// typically uses.
func NewHMACVerifier(secret []byte) *Verifier {
	return &Verifier{
		keyFunc: func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
			}
			return secret, nil
		},
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Verify parses and validates tokenString, returning the Claims it carries.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	token, err := v.parser.Parse(tokenString, v.keyFunc)
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("verify token: invalid claims")
	}

	sub, _ := claims["sub"].(string)
	scopeClaim, _ := claims["scope"].(string)
	return Claims{Subject: sub, Scopes: ParseScopes(scopeClaim)}, nil
}
