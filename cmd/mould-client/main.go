// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command mould-client is a demo client for mould-server: it drives each
// reference service through one full request/reply cycle over a real
// WebSocket connection, printing every event it sends and receives.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mouldproto/mould/mouldauth"
	"github.com/mouldproto/mould/transport/ws"
)

var (
	serverURL  = flag.String("url", "ws://localhost:8765/mould", "mould-server WebSocket URL")
	authURL    = flag.String("auth-url", "http://localhost:8766/authorize", "authorization endpoint (mould-server's bundled demo authorization server by default)")
	tokenURL   = flag.String("token-url", "http://localhost:8766/token", "token endpoint")
	clientID   = flag.String("client-id", "mould-client-demo", "OAuth2 client_id to present")
	token      = flag.String("token", "", "a bearer token to use directly, skipping the OAuth2 PKCE flow (for scripted demos)")
	skipAuth   = flag.Bool("no-auth", false, "dial without a bearer token, as an anonymous connection (every Permission-gated action will be denied)")
	callbackAt = flag.String("callback-addr", "localhost:3210", "loopback address to receive the authorization redirect on")
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	header := http.Header{}
	if bearer := obtainBearerToken(ctx); bearer != "" {
		header.Set("Authorization", "Bearer "+bearer)
	}

	flow, err := ws.Dial(ctx, *serverURL, nil, header, ws.Options{})
	if err != nil {
		log.Fatalf("dial %s: %v", *serverURL, err)
	}
	defer flow.Close()

	send(ctx, flow, "request", map[string]any{
		"service": "echo", "action": "say", "payload": map[string]any{"text": "hello"},
	})
	recvUntilDone(ctx, flow)

	send(ctx, flow, "request", map[string]any{
		"service": "count", "action": "range", "payload": map[string]any{"from": 0, "to": 3},
	})
	driveStream(ctx, flow)

	send(ctx, flow, "request", map[string]any{
		"service": "longjob", "action": "run", "payload": map[string]any{"steps": 2},
	})
	driveSuspendResume(ctx, flow)
}

// obtainBearerToken gets the token the WebSocket upgrade's Authorization
// header carries, so the server's Permission checks (echo.RightSay,
// longjob.RightRun) have something to evaluate. -token short-circuits this
// for scripted demos; -no-auth dials anonymously; otherwise it runs the
// OAuth2 PKCE flow against -auth-url/-token-url via mouldauth, catching the
// redirect on a short-lived loopback listener the way the teacher SDK's
// auth example client does (examples/auth/client/main.go).
func obtainBearerToken(ctx context.Context) string {
	if *skipAuth {
		return ""
	}
	if *token != "" {
		return *token
	}

	redirectURL := "http://" + *callbackAt + "/callback"
	handler := mouldauth.NewHandler(mouldauth.ServerConfig{
		AuthURL:     *authURL,
		TokenURL:    *tokenURL,
		ClientID:    *clientID,
		RedirectURL: redirectURL,
		Scopes:      []string{"echo:say", "longjob:run"},
	})

	type result struct {
		code, state string
		err         error
	}
	authCh := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "authorization code not found", http.StatusBadRequest)
			return
		}
		authCh <- result{code: code, state: r.URL.Query().Get("state")}
		fmt.Fprint(w, "Authentication successful. You can close this window.")
	})
	callbackServer := &http.Server{Addr: *callbackAt, Handler: mux}
	go func() {
		if err := callbackServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			authCh <- result{err: fmt.Errorf("callback server: %w", err)}
		}
	}()
	defer callbackServer.Close()

	authorizationURL := handler.Start()
	fmt.Printf("Please authorize by visiting: %s\n", authorizationURL)

	var res result
	select {
	case res = <-authCh:
	case <-ctx.Done():
		log.Fatalf("timed out waiting for authorization: %v", ctx.Err())
	}
	if res.err != nil {
		log.Fatalf("authorization callback: %v", res.err)
	}
	if err := handler.Complete(res.code, res.state); err != nil {
		log.Fatalf("complete authorization: %v", err)
	}

	tok, err := handler.Exchange(ctx)
	if err != nil {
		log.Fatalf("exchange authorization code: %v", err)
	}
	return tok.AccessToken
}

func send(ctx context.Context, flow *ws.Flow, event string, data any) {
	env := envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			log.Fatalf("marshal %s payload: %v", event, err)
		}
		env.Data = raw
	}
	content, err := json.Marshal(env)
	if err != nil {
		log.Fatalf("marshal envelope: %v", err)
	}
	fmt.Printf("-> %s\n", content)
	if err := flow.Push(ctx, string(content)); err != nil {
		log.Fatalf("push: %v", err)
	}
}

func recvOne(ctx context.Context, flow *ws.Flow) envelope {
	content, ok, err := flow.Pull(ctx)
	if err != nil {
		log.Fatalf("pull: %v", err)
	}
	if !ok {
		log.Fatal("connection closed mid-demo")
	}
	fmt.Printf("<- %s\n", content)
	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		log.Fatalf("unmarshal envelope: %v", err)
	}
	return env
}

// recvUntilDone drains events for a single-shot request (item, then done).
func recvUntilDone(ctx context.Context, flow *ws.Flow) {
	for {
		env := recvOne(ctx, flow)
		switch env.Event {
		case "done", "fail", "reject":
			return
		}
	}
}

// driveStream answers every "ready" with "next" until the stream reports
// done, fail, or reject.
func driveStream(ctx context.Context, flow *ws.Flow) {
	for {
		env := recvOne(ctx, flow)
		switch env.Event {
		case "ready":
			send(ctx, flow, "next", nil)
		case "done", "fail", "reject":
			return
		}
	}
}

// driveSuspendResume demonstrates S4: suspend after the first ready, then
// resume the returned TaskId and drain the rest of the stream.
func driveSuspendResume(ctx context.Context, flow *ws.Flow) {
	env := recvOne(ctx, flow)
	if env.Event != "ready" {
		log.Fatalf("expected ready before suspending, got %s", env.Event)
	}

	send(ctx, flow, "suspend", nil)
	env = recvOne(ctx, flow)
	if env.Event != "suspended" {
		log.Fatalf("expected suspended, got %s", env.Event)
	}
	var taskID int
	if err := json.Unmarshal(env.Data, &taskID); err != nil {
		log.Fatalf("unmarshal suspended task id: %v", err)
	}

	send(ctx, flow, "resume", taskID)
	driveStream(ctx, flow)
}
