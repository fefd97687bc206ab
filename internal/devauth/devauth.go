// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package devauth is a single-process, single-secret authorization server
// for demos and local development: cmd/mould-server starts one alongside
// the mould listener so cmd/mould-client has a real OAuth2 PKCE endpoint to
// authenticate against (via mouldauth), exercising the same Permission path
// a production deployment's external authorization server would drive
// instead of leaving it untested (spec.md §2's demo deployment).
//
// It is not a conformant authorization server: no client registration, no
// consent screen, no login — every authorization request is granted the
// fixed subject and scope configured at startup. Point a real deployment at
// a real OAuth2 provider instead.
package devauth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Server issues HS256 bearer tokens over a minimal PKCE authorization-code
// flow, grounded on mouldauth's test fake (mouldauth/client_test.go's
// fakeAuthServer) but exposed as a real http.Handler so cmd/mould-client can
// authenticate against it instead of only exercising the flow in tests.
type Server struct {
	// Secret signs issued tokens; pass the same secret to
	// permission.NewHMACVerifier on the mould-server side.
	Secret []byte
	// Subject and Scope populate every issued token's "sub" and "scope"
	// claims — every login is the same demo principal.
	Subject string
	Scope   string

	challenge string
}

// Handler returns the /authorize and /token endpoints as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", s.authorize)
	mux.HandleFunc("/token", s.token)
	return mux
}

// authorize records the PKCE challenge and immediately redirects back with
// a fixed authorization code: there is no login screen to wait on.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.challenge = q.Get("code_challenge")
	redirect := q.Get("redirect_uri") + "?code=devauth-code&state=" + q.Get("state")
	http.Redirect(w, r, redirect, http.StatusFound)
}

// token validates the PKCE verifier against the challenge recorded by
// authorize and, on success, mints a signed access token.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}
	hasher := sha256.New()
	hasher.Write([]byte(r.Form.Get("code_verifier")))
	challenge := base64.RawURLEncoding.EncodeToString(hasher.Sum(nil))
	if challenge != s.challenge {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
		return
	}

	claims := jwt.MapClaims{
		"sub":   s.Subject,
		"scope": s.Scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		http.Error(w, "server_error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600}`, signed)
}
