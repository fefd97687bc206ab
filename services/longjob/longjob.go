// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package longjob is a suspend/resume reference service: a worker that
// tunes in, emits a handful of progress items, and lets the client suspend
// mid-stream and resume later on the same connection — the dispatcher's
// suspended-table path (§4.8, §9).
package longjob

import (
	"encoding/json"

	"github.com/mouldproto/mould/mould"
	"github.com/mouldproto/mould/permission"
	"github.com/mouldproto/mould/services/session"
)

// RightRun gates the "run" action: a connection needs this scope to start
// a longjob. cmd/mould-server grants it to any token whose "scope" claim
// includes "longjob:run".
const RightRun = permission.Scope("longjob:run")

// Request configures the "run" action: how many progress steps to report
// before finishing.
type Request struct {
	Steps int `json:"steps"`
}

// Progress is one streamed status item.
type Progress struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

// New builds the longjob service: one streaming, suspendable action,
// "run".
func New() mould.Service[session.State] {
	return mould.ActionMap[session.State]{
		"run": func() mould.Worker[session.State] { return &runWorker{} },
	}
}

type runWorker struct {
	step, total int
}

func (w *runWorker) Prepare(sess *mould.Session[session.State], payload []byte) (mould.Shortcut, error) {
	if err := mould.Require(sess.State(), RightRun); err != nil {
		return mould.Shortcut{}, err
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return mould.Shortcut{}, mould.RejectErr("malformed request: %v", err)
	}
	if req.Steps <= 0 {
		return mould.Shortcut{}, mould.RejectErr("steps must be positive")
	}
	w.total = req.Steps
	w.step = 0
	return mould.Tuned(), nil
}

// Realize advances one step per call regardless of whether it was driven by
// a "next" or by a dispatcher resuming a suspended worker: the worker
// carries its own progress, so resume simply picks the loop back up
// (§4.8's "Resume" re-enters Streaming at ready without re-running
// Prepare).
func (w *runWorker) Realize(_ *mould.Session[session.State], _ []byte, _ bool) (mould.Realize, error) {
	if w.step >= w.total {
		return mould.RealizeDoneResult(), nil
	}
	w.step++
	item := Progress{Step: w.step, Total: w.total}
	if w.step >= w.total {
		return mould.ManyItemsAndDone([]any{item}), nil
	}
	return mould.OneItem(item), nil
}
