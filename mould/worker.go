// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

// Worker is a stateful object created per request (§3, §4.4). Services
// produce one via a WorkerFactory; the dispatcher drives it through
// Prepare and, if it tunes in, repeated Realize calls.
//
// Single-shot actions don't implement Worker directly: Perform (see
// service.go) wraps a PerformFunc in singleShotWorker, which packs
// Perform into Prepare returning a Shortcut, exactly as spec.md §4.8 says
// services should ("Single-shot workers are modeled as a service whose
// prepare internally runs perform").
type Worker[S any] interface {
	// Prepare is the worker's first step. It may short-circuit the whole
	// request (Done, OneItemAndDone, Reject) or tune in for streaming.
	Prepare(session *Session[S], payload []byte) (Shortcut, error)

	// Realize is one streaming step. It is only called after Prepare
	// returns ShortcutTuned, and only while the dispatcher is in
	// Streaming state.
	Realize(session *Session[S], payload []byte, hasPayload bool) (Realize, error)
}

// ShortcutKind discriminates the result of Worker.Prepare.
type ShortcutKind int

const (
	// ShortcutTuned means the worker is ready to stream; the dispatcher
	// will emit "ready" and start pumping Realize.
	ShortcutTuned ShortcutKind = iota
	// ShortcutOneItemAndDone means: emit one item, then done, without
	// ever entering Streaming state.
	ShortcutOneItemAndDone
	// ShortcutDone means: finish immediately with no items.
	ShortcutDone
	// ShortcutReject means: refuse without running.
	ShortcutReject
)

// Shortcut is the result of Worker.Prepare (§4.4).
type Shortcut struct {
	Kind    ShortcutKind
	Item    any    // ShortcutOneItemAndDone
	Message string // ShortcutReject
}

// Tuned builds a ShortcutTuned result.
func Tuned() Shortcut { return Shortcut{Kind: ShortcutTuned} }

// OneItemAndDone builds a ShortcutOneItemAndDone result.
func OneItemAndDone(item any) Shortcut {
	return Shortcut{Kind: ShortcutOneItemAndDone, Item: item}
}

// ShortcutDoneResult builds a ShortcutDone result (no items).
func ShortcutDoneResult() Shortcut { return Shortcut{Kind: ShortcutDone} }

// Reject builds a ShortcutReject result.
func Reject(message string) Shortcut {
	return Shortcut{Kind: ShortcutReject, Message: message}
}

// RealizeKind discriminates the result of Worker.Realize.
type RealizeKind int

const (
	// RealizeOneItem means: emit one item, then call Realize again.
	RealizeOneItem RealizeKind = iota
	// RealizeManyItems means: emit a batch of items, then call Realize
	// again. Restored from the original Rust implementation's
	// Realize::ManyItems (src/worker.rs); spec.md's OneItem/Empty/Done
	// trio doesn't name it but nothing excludes it either — see
	// SPEC_FULL.md §4.
	RealizeManyItems
	// RealizeManyItemsAndDone emits a batch of items, then terminates the
	// stream normally (done).
	RealizeManyItemsAndDone
	// RealizeEmpty means: no item this step, yield and call Realize
	// again without emitting anything.
	RealizeEmpty
	// RealizeDone means: terminate the stream normally (done).
	RealizeDone
)

// Realize is the result of one Worker.Realize step (§4.4).
type Realize struct {
	Kind  RealizeKind
	Item  any   // RealizeOneItem
	Items []any // RealizeManyItems, RealizeManyItemsAndDone
}

// OneItem builds a RealizeOneItem result.
func OneItem(item any) Realize { return Realize{Kind: RealizeOneItem, Item: item} }

// ManyItems builds a RealizeManyItems result.
func ManyItems(items []any) Realize { return Realize{Kind: RealizeManyItems, Items: items} }

// ManyItemsAndDone builds a RealizeManyItemsAndDone result.
func ManyItemsAndDone(items []any) Realize {
	return Realize{Kind: RealizeManyItemsAndDone, Items: items}
}

// Empty builds a RealizeEmpty result.
func Empty() Realize { return Realize{Kind: RealizeEmpty} }

// RealizeDoneResult builds a RealizeDone result.
func RealizeDoneResult() Realize { return Realize{Kind: RealizeDone} }

// PerformFunc is a single-shot worker body: one call, one reply. Wrap with
// Perform to adapt it into a WorkerFactory (§4.8: "Single-shot
// workers are modeled as a service whose prepare internally runs perform").
type PerformFunc[S any] func(session *Session[S], payload []byte) (out any, err error)

// singleShotWorker adapts a PerformFunc into the Worker interface by
// packing Perform's result into a Prepare Shortcut. Realize is never
// called: Prepare never returns ShortcutTuned.
type singleShotWorker[S any] struct {
	perform PerformFunc[S]
}

func (w *singleShotWorker[S]) Prepare(session *Session[S], payload []byte) (Shortcut, error) {
	out, err := w.perform(session, payload)
	if err != nil {
		if me, ok := err.(*Error); ok {
			return Shortcut{}, me
		}
		return Shortcut{}, wrapErr(KindWorkerFault, "perform failed", err)
	}
	if out == nil {
		return ShortcutDoneResult(), nil
	}
	return OneItemAndDone(out), nil
}

func (w *singleShotWorker[S]) Realize(*Session[S], []byte, bool) (Realize, error) {
	return Realize{}, newErr(KindWorkerFault, "illegal worker state: realize called on a single-shot worker")
}

// RejectWorker is a trivial Worker that always refuses, restored from the
// original Rust implementation's RejectWorker (src/worker.rs). Services use
// it to refuse unknown or disallowed actions without writing a bespoke
// worker.
type RejectWorker[S any] struct {
	Reason string
}

func (w *RejectWorker[S]) Prepare(*Session[S], []byte) (Shortcut, error) {
	return Reject(w.Reason), nil
}

func (w *RejectWorker[S]) Realize(*Session[S], []byte, bool) (Realize, error) {
	return Realize{}, newErr(KindReject, w.Reason)
}
