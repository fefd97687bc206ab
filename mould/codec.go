// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"github.com/segmentio/encoding/json"

	"github.com/mouldproto/mould/internal/wire"
)

// TaskId identifies a suspended worker within one session (§3). It is a
// small, densely allocated integer; see suspended.go for the slot allocator
// that hands them out.
type TaskId int

// Request carries the payload of a client "request" event: the
// (service, action, payload) triple spec.md §3 names.
type Request struct {
	Service string
	Action  string
	Payload json.RawMessage
}

// inputKind discriminates the decoded shape of an inbound event without
// resorting to a type switch everywhere recv is used.
type inputKind int

const (
	inRequest inputKind = iota
	inNext
	inSuspend
	inResume
)

// input is the decoded form of one inbound wire event (§3, "Input events").
// Only the fields relevant to Kind are populated.
type input struct {
	kind    inputKind
	request Request        // inRequest
	next    json.RawMessage // inNext; nil means "no payload"
	hasNext bool            // inNext; distinguishes explicit null from absent
	resume  TaskId          // inResume
}

// outKind discriminates outbound events (§3, "Output events").
type outKind int

const (
	outReady outKind = iota
	outItem
	outDone
	outReject
	outFail
	outSuspended
)

// Output is one server-to-client event. Construct with the OutXxx
// constructors rather than the struct literal, so the kind/field pairing
// stays correct.
type Output struct {
	kind      outKind
	item      json.RawMessage
	message   string
	suspended TaskId
}

// OutReady builds the "ready" event: the worker awaits next.
func OutReady() Output { return Output{kind: outReady} }

// OutItem builds an "item" event carrying one streamed value.
func OutItem(payload any) (Output, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Output{}, wrapErr(KindSerdeFailed, "marshal item", err)
	}
	return Output{kind: outItem, item: data}, nil
}

// OutDone builds the "done" event: the worker completed normally.
func OutDone() Output { return Output{kind: outDone} }

// OutReject builds a "reject" event: a domain-level refusal from the worker.
func OutReject(message string) Output { return Output{kind: outReject, message: message} }

// OutFail builds a "fail" event: an operational error for this request.
func OutFail(message string) Output { return Output{kind: outFail, message: message} }

// OutSuspended builds a "suspended" event carrying the parked worker's
// TaskId.
func OutSuspended(id TaskId) Output { return Output{kind: outSuspended, suspended: id} }

// wireEnvelope is the {"event": ..., "data": ...} grammar of §6.
type wireEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type requestData struct {
	Service string          `json:"service"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// decode maps one wire JSON object to a typed input event, per §4.2. The
// "cancel" event has no typed input representation: callers of decode
// translate it directly into a *Error{Kind: KindCanceled} (see session.go),
// matching spec.md's "cancel ... decodes to a cancel error injected into the
// current request."
func decode(content string) (*input, error) {
	var env wireEnvelope
	if err := wire.StrictUnmarshal([]byte(content), &env); err != nil {
		return nil, wrapErr(KindSerdeFailed, "malformed envelope", err)
	}

	switch env.Event {
	case "request":
		if len(env.Data) == 0 {
			return nil, newErr(KindSerdeFailed, "request: missing data")
		}
		var rd requestData
		if err := wire.StrictUnmarshal(env.Data, &rd); err != nil {
			return nil, wrapErr(KindSerdeFailed, "request: malformed data", err)
		}
		if rd.Service == "" || rd.Action == "" {
			return nil, newErr(KindSerdeFailed, "request: service and action are required")
		}
		payload := rd.Payload
		if payload == nil {
			payload = json.RawMessage("null")
		}
		return &input{
			kind: inRequest,
			request: Request{
				Service: rd.Service,
				Action:  rd.Action,
				Payload: payload,
			},
		}, nil

	case "next":
		if len(env.Data) == 0 {
			return &input{kind: inNext, hasNext: false}, nil
		}
		return &input{kind: inNext, next: env.Data, hasNext: true}, nil

	case "suspend":
		return &input{kind: inSuspend}, nil

	case "resume":
		if len(env.Data) == 0 {
			return nil, newErr(KindSerdeFailed, "resume: missing data")
		}
		var id int
		if err := json.Unmarshal(env.Data, &id); err != nil || id < 0 {
			return nil, newErr(KindSerdeFailed, "resume: data must be a non-negative integer")
		}
		return &input{kind: inResume, resume: TaskId(id)}, nil

	case "cancel":
		return nil, newErr(KindCanceled, "canceled by client")

	default:
		return nil, newErr(KindIllegalEventName, env.Event)
	}
}

// encode maps a typed Output to its wire JSON object, the dual of decode.
func encode(out Output) (string, error) {
	var env wireEnvelope
	switch out.kind {
	case outReady:
		env.Event = "ready"
	case outItem:
		env.Event = "item"
		env.Data = out.item
	case outDone:
		env.Event = "done"
	case outReject:
		env.Event = "reject"
		data, err := json.Marshal(out.message)
		if err != nil {
			return "", wrapErr(KindSerdeFailed, "marshal reject message", err)
		}
		env.Data = data
	case outFail:
		env.Event = "fail"
		data, err := json.Marshal(out.message)
		if err != nil {
			return "", wrapErr(KindSerdeFailed, "marshal fail message", err)
		}
		env.Data = data
	case outSuspended:
		env.Event = "suspended"
		data, err := json.Marshal(int(out.suspended))
		if err != nil {
			return "", wrapErr(KindSerdeFailed, "marshal suspended id", err)
		}
		env.Data = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return "", wrapErr(KindSerdeFailed, "marshal envelope", err)
	}
	return string(data), nil
}
