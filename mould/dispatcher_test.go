// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeFlow is an in-memory Flow driven by a preloaded queue of inbound
// frames, recording every outbound frame it's given. Pull returns an
// orderly close once the queue is drained.
type fakeFlow struct {
	mu  sync.Mutex
	in  []string
	out []string
}

func newFakeFlow(in ...string) *fakeFlow {
	return &fakeFlow{in: in}
}

func (f *fakeFlow) Who() string { return "fake" }

func (f *fakeFlow) Pull(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.in) == 0 {
		return "", false, nil
	}
	next := f.in[0]
	f.in = f.in[1:]
	return next, true, nil
}

func (f *fakeFlow) Push(ctx context.Context, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, content)
	return nil
}

func (f *fakeFlow) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.out))
	copy(out, f.out)
	return out
}

type pingReply struct {
	Pong bool `json:"pong"`
}

func testSuite() *Suite[int] {
	suite := NewSuite[int](BuilderFunc[int](func() int { return 0 }))
	suite.Register("echo", ActionMap[int]{
		"ping": Perform(func(sess *Session[int], payload []byte) (any, error) {
			return pingReply{Pong: true}, nil
		}),
	})
	suite.Register("count", ActionMap[int]{
		"to3":     func() Worker[int] { return &to3Worker{} },
		"forever": func() Worker[int] { return &foreverWorker{} },
	})
	return suite
}

type to3Worker struct{ n int }

func (w *to3Worker) Prepare(*Session[int], []byte) (Shortcut, error) { return Tuned(), nil }
func (w *to3Worker) Realize(*Session[int], []byte, bool) (Realize, error) {
	if w.n >= 3 {
		return RealizeDoneResult(), nil
	}
	w.n++
	return OneItem(w.n), nil
}

type foreverWorker struct{}

func (w *foreverWorker) Prepare(*Session[int], []byte) (Shortcut, error) { return Tuned(), nil }
func (w *foreverWorker) Realize(*Session[int], []byte, bool) (Realize, error) {
	return Empty(), nil
}

func runDispatcher(t *testing.T, flow *fakeFlow) {
	t.Helper()
	sess := NewSession[int](flow, 0, nil)
	d := NewDispatcher(sess, testSuite(), DispatcherOptions[int]{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Run(ctx)
}

func TestDispatcherS1SimpleRequestResponse(t *testing.T) {
	flow := newFakeFlow(`{"event":"request","data":{"service":"echo","action":"ping","payload":{}}}`)
	runDispatcher(t, flow)

	want := []string{`{"event":"item","data":{"pong":true}}`, `{"event":"done"}`}
	got := flow.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcherS2StreamingWithExplicitNext(t *testing.T) {
	flow := newFakeFlow(
		`{"event":"request","data":{"service":"count","action":"to3","payload":{}}}`,
		`{"event":"next","data":null}`,
		`{"event":"next","data":null}`,
		`{"event":"next","data":null}`,
		`{"event":"next","data":null}`,
	)
	runDispatcher(t, flow)

	want := []string{
		`{"event":"ready"}`,
		`{"event":"item","data":1}`,
		`{"event":"ready"}`,
		`{"event":"item","data":2}`,
		`{"event":"ready"}`,
		`{"event":"item","data":3}`,
		`{"event":"ready"}`,
		`{"event":"done"}`,
	}
	got := flow.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcherS3UnknownService(t *testing.T) {
	flow := newFakeFlow(`{"event":"request","data":{"service":"missing","action":"x","payload":{}}}`)
	runDispatcher(t, flow)

	want := []string{`{"event":"fail","data":"service not found"}`}
	got := flow.events()
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestDispatcherS4SuspendThenResume(t *testing.T) {
	flow := newFakeFlow(
		`{"event":"request","data":{"service":"count","action":"to3","payload":{}}}`,
		`{"event":"next","data":null}`,
		`{"event":"suspend"}`,
		`{"event":"resume","data":0}`,
		`{"event":"next","data":null}`,
		`{"event":"next","data":null}`,
		`{"event":"next","data":null}`,
	)
	runDispatcher(t, flow)

	want := []string{
		`{"event":"ready"}`,
		`{"event":"item","data":1}`,
		`{"event":"ready"}`,
		`{"event":"suspended","data":0}`,
		`{"event":"ready"}`,
		`{"event":"item","data":2}`,
		`{"event":"ready"}`,
		`{"event":"item","data":3}`,
		`{"event":"ready"}`,
		`{"event":"done"}`,
	}
	got := flow.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcherS5CancelMidStreamIsSilent(t *testing.T) {
	flow := newFakeFlow(
		`{"event":"request","data":{"service":"count","action":"forever","payload":{}}}`,
		`{"event":"cancel"}`,
		`{"event":"request","data":{"service":"echo","action":"ping","payload":{}}}`,
	)
	runDispatcher(t, flow)

	want := []string{
		`{"event":"ready"}`,
		`{"event":"item","data":{"pong":true}}`,
		`{"event":"done"}`,
	}
	got := flow.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcherS6IllegalEventOrder(t *testing.T) {
	flow := newFakeFlow(`{"event":"next","data":null}`)
	runDispatcher(t, flow)

	want := []string{`{"event":"fail","data":"unexpected state"}`}
	got := flow.events()
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}
