// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFlowPushPull(t *testing.T) {
	lis := NewListener()
	server := httptest.NewServer(lis)
	defer server.Close()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		flow, err := lis.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		content, ok, err := flow.Pull(ctx)
		if err != nil || !ok {
			t.Errorf("Pull: content=%q ok=%v err=%v", content, ok, err)
			return
		}
		if err := flow.Push(ctx, content); err != nil {
			t.Errorf("Push: %v", err)
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"suspend"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("message type = %d, want TextMessage", mt)
	}
	if string(data) != `{"event":"suspend"}` {
		t.Fatalf("echoed content = %q", data)
	}
}

func TestFlowRejectsBinaryFrame(t *testing.T) {
	lis := NewListener()
	server := httptest.NewServer(lis)
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		flow, err := lis.Accept(ctx)
		if err != nil {
			errCh <- err
			return
		}
		_, _, err = flow.Pull(ctx)
		errCh <- err
	}()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Pull returned nil error for a binary frame, want BadMessageEncoding")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Pull to reject the binary frame")
	}
}

func TestFlowPullNonBlockingTimesOutThenSendPingSucceeds(t *testing.T) {
	lis := NewListener()
	server := httptest.NewServer(lis)
	defer server.Close()

	flowCh := make(chan *Flow, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		f, err := lis.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		flowCh <- f.(*Flow)
	}()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetPingHandler(func(string) error {
		return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
	})

	f := <-flowCh
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err = f.PullNonBlocking(ctx, 50*time.Millisecond)
	if err == nil {
		t.Fatal("PullNonBlocking: expected ErrNotReady with nothing sent, got nil error")
	}

	if err := f.SendPing(ctx); err != nil {
		t.Fatalf("SendPing: %v", err)
	}
}

func TestFlowClose(t *testing.T) {
	lis := NewListener()
	server := httptest.NewServer(lis)
	defer server.Close()

	flowCh := make(chan *Flow, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		f, err := lis.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		flowCh <- f.(*Flow)
	}()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	f := <-flowCh
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
