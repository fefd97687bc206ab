// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package mouldauth is the client-side OAuth2 PKCE authorization-code flow
// a mould client runs before opening a connection: it turns a browser-based
// (or loopback-redirect) login into a bearer token, which the client then
// presents however the chosen transport carries credentials (an
// Authorization header on the WebSocket upgrade request, typically).
//
// It is deliberately simpler than a full MCP authorization client: mould
// connections aren't HTTP resource requests, so there is no
// WWW-Authenticate challenge or protected-resource-metadata discovery to
// react to. A mould deployment names its authorization server directly.
package mouldauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/mouldproto/mould/internal/netutil"
)

// ErrAuthorizationPending is returned by Handler.Exchange when the caller
// hasn't yet supplied the authorization code the authorization server
// issued (the user is still at the login page, or the redirect hasn't
// landed).
var ErrAuthorizationPending = errors.New("mouldauth: authorization code not yet available")

// ServerConfig names the authorization server a Handler talks to and the
// client identity it authenticates as.
type ServerConfig struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectURL  string
}

// Handler drives one PKCE authorization-code flow to a token. It is
// stateful and handles one flow at a time, reentrant across the
// redirect boundary: call Start, have the user complete login out of
// band, pass the resulting code to Complete, then call Exchange.
type Handler struct {
	cfg ServerConfig

	codeVerifier string
	state        string
	code         string
}

// NewHandler builds a Handler for the given authorization server.
func NewHandler(cfg ServerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// Start generates a PKCE verifier/challenge pair and a fresh state value,
// returning the URL the user should be sent to complete login. If
// RedirectURL names a loopback address, callers typically run a short-lived
// local HTTP listener to catch the redirect rather than a registered public
// callback.
func (h *Handler) Start() string {
	h.codeVerifier = oauth2.GenerateVerifier()
	h.state = rand.Text()

	cfg := h.oauth2Config()
	return cfg.AuthCodeURL(h.state, oauth2.S256ChallengeOption(h.codeVerifier))
}

// Complete records the authorization code and state returned by the
// redirect. It validates state to guard against cross-site request
// forgery on the callback.
func (h *Handler) Complete(code, state string) error {
	if h.state == "" {
		return errors.New("mouldauth: Start was not called")
	}
	if state != h.state {
		return fmt.Errorf("mouldauth: state mismatch: expected %q, got %q", h.state, state)
	}
	h.code = code
	return nil
}

// Exchange trades the authorization code for a token. It returns
// ErrAuthorizationPending if Complete hasn't been called yet.
func (h *Handler) Exchange(ctx context.Context) (*oauth2.Token, error) {
	if h.code == "" {
		return nil, ErrAuthorizationPending
	}
	cfg := h.oauth2Config()
	tok, err := cfg.Exchange(ctx, h.code, oauth2.VerifierOption(h.codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("mouldauth: token exchange: %w", err)
	}
	return tok, nil
}

// IsLoopbackRedirect reports whether the configured RedirectURL points at a
// loopback address, the case in which a client typically runs its own
// short-lived callback listener instead of a registered public endpoint.
func (h *Handler) IsLoopbackRedirect() bool {
	u, err := url.Parse(h.cfg.RedirectURL)
	if err != nil {
		return false
	}
	return netutil.IsLoopback(u.Host)
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  h.cfg.AuthURL,
			TokenURL: h.cfg.TokenURL,
		},
		RedirectURL: h.cfg.RedirectURL,
		Scopes:      h.cfg.Scopes,
	}
}
