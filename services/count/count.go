// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package count is a streaming reference service: it tunes in at Prepare
// and emits one item per "next", exercising the dispatcher's Streaming
// state and the RealizeOneItem/RealizeDone path.
package count

import (
	"encoding/json"

	"github.com/mouldproto/mould/mould"
	"github.com/mouldproto/mould/services/session"
)

// Request configures the "range" action: emit From, From+1, ..., up to but
// not including To.
type Request struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Item is one streamed value.
type Item struct {
	N int `json:"n"`
}

// New builds the count service: one streaming action, "range".
func New() mould.Service[session.State] {
	return mould.ActionMap[session.State]{
		"range": func() mould.Worker[session.State] { return &rangeWorker{} },
	}
}

type rangeWorker struct {
	next int
	to   int
}

func (w *rangeWorker) Prepare(_ *mould.Session[session.State], payload []byte) (mould.Shortcut, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return mould.Shortcut{}, mould.RejectErr("malformed request: %v", err)
	}
	if req.To < req.From {
		return mould.Shortcut{}, mould.RejectErr("to must be >= from")
	}
	if req.To == req.From {
		return mould.ShortcutDoneResult(), nil
	}
	w.next = req.From
	w.to = req.To
	return mould.Tuned(), nil
}

func (w *rangeWorker) Realize(_ *mould.Session[session.State], _ []byte, _ bool) (mould.Realize, error) {
	if w.next >= w.to {
		return mould.RealizeDoneResult(), nil
	}
	item := Item{N: w.next}
	w.next++
	return mould.OneItem(item), nil
}
