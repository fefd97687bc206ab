// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mouldproto/mould/mouldauth"
	"github.com/mouldproto/mould/permission"
)

// newNoRedirectClient returns a client that reports a redirect response
// instead of following it, so the test can inspect the Location header.
func newNoRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func codeAndStateFromLocation(t *testing.T, location string) (code, state string) {
	t.Helper()
	u, err := url.Parse(location)
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	return u.Query().Get("code"), u.Query().Get("state")
}

func TestServerIssuesVerifiableToken(t *testing.T) {
	srv := &Server{Secret: []byte("test-secret"), Subject: "demo-user", Scope: "echo:say longjob:run"}
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	h := mouldauth.NewHandler(mouldauth.ServerConfig{
		AuthURL:     server.URL + "/authorize",
		TokenURL:    server.URL + "/token",
		ClientID:    "test-client",
		RedirectURL: "http://127.0.0.1:9999/callback",
	})

	authURL := h.Start()
	client := newNoRedirectClient()
	resp, err := client.Get(authURL)
	if err != nil {
		t.Fatalf("GET authorize: %v", err)
	}
	defer resp.Body.Close()

	code, state := codeAndStateFromLocation(t, resp.Header.Get("Location"))
	if err := h.Complete(code, state); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	tok, err := h.Exchange(context.Background())
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	verifier := permission.NewHMACVerifier([]byte("test-secret"))
	claims, err := verifier.Verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "demo-user" {
		t.Fatalf("Subject = %q, want demo-user", claims.Subject)
	}
	if !claims.Scopes.HasRight(permission.Scope("echo:say")) {
		t.Fatal("expected echo:say to be granted")
	}
}

func TestServerTokenRejectedByMismatchedVerifier(t *testing.T) {
	verifier := permission.NewHMACVerifier([]byte("right-secret"))
	other := permission.NewHMACVerifier([]byte("wrong-secret"))

	srv := &Server{Secret: []byte("right-secret"), Subject: "demo-user", Scope: "echo:say"}
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	h := mouldauth.NewHandler(mouldauth.ServerConfig{
		AuthURL:     server.URL + "/authorize",
		TokenURL:    server.URL + "/token",
		ClientID:    "test-client",
		RedirectURL: "http://127.0.0.1:9999/callback",
	})
	authURL := h.Start()
	client := newNoRedirectClient()
	resp, err := client.Get(authURL)
	if err != nil {
		t.Fatalf("GET authorize: %v", err)
	}
	defer resp.Body.Close()
	code, state := codeAndStateFromLocation(t, resp.Header.Get("Location"))
	if err := h.Complete(code, state); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	tok, err := h.Exchange(context.Background())
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	if _, err := verifier.Verify(tok.AccessToken); err != nil {
		t.Fatalf("Verify with the right secret should succeed: %v", err)
	}
	if _, err := other.Verify(tok.AccessToken); err == nil {
		t.Fatal("Verify with the wrong secret should fail")
	}
}
