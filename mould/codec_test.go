// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mould

import (
	"encoding/json"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	in, err := decode(`{"event":"request","data":{"service":"echo","action":"ping","payload":{"x":1}}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.kind != inRequest {
		t.Fatalf("kind = %v, want inRequest", in.kind)
	}
	if in.request.Service != "echo" || in.request.Action != "ping" {
		t.Errorf("request = %+v", in.request)
	}
}

func TestDecodeNextAbsentData(t *testing.T) {
	in, err := decode(`{"event":"next"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.kind != inNext || in.hasNext {
		t.Errorf("want inNext with no payload, got %+v", in)
	}
}

func TestDecodeNextNullData(t *testing.T) {
	in, err := decode(`{"event":"next","data":null}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.kind != inNext || !in.hasNext {
		t.Errorf("want inNext with explicit null payload, got %+v", in)
	}
}

func TestDecodeSuspend(t *testing.T) {
	in, err := decode(`{"event":"suspend"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.kind != inSuspend {
		t.Errorf("kind = %v, want inSuspend", in.kind)
	}
}

func TestDecodeResume(t *testing.T) {
	in, err := decode(`{"event":"resume","data":42}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.kind != inResume || in.resume != 42 {
		t.Errorf("resume = %+v", in)
	}
}

func TestDecodeResumeNegativeRejected(t *testing.T) {
	if _, err := decode(`{"event":"resume","data":-1}`); err == nil {
		t.Fatal("expected error for negative TaskId")
	}
}

func TestDecodeCancelIsCanceledError(t *testing.T) {
	_, err := decode(`{"event":"cancel"}`)
	me, ok := err.(*Error)
	if !ok || me.Kind != KindCanceled {
		t.Fatalf("err = %v, want *Error{Kind: KindCanceled}", err)
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	_, err := decode(`{"event":"bogus"}`)
	me, ok := err.(*Error)
	if !ok || me.Kind != KindIllegalEventName {
		t.Fatalf("err = %v, want *Error{Kind: KindIllegalEventName}", err)
	}
}

func TestDecodeRequestMissingFields(t *testing.T) {
	if _, err := decode(`{"event":"request","data":{"service":"echo"}}`); err == nil {
		t.Fatal("expected error for missing action")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	item, err := OutItem(map[string]any{"pong": true})
	if err != nil {
		t.Fatalf("OutItem: %v", err)
	}
	cases := []Output{
		OutReady(),
		item,
		OutDone(),
		OutReject("nope"),
		OutFail("boom"),
		OutSuspended(7),
	}
	for _, want := range cases {
		wire, err := encode(want)
		if err != nil {
			t.Fatalf("encode(%+v): %v", want, err)
		}
		var env wireEnvelope
		if err := json.Unmarshal([]byte(wire), &env); err != nil {
			t.Fatalf("re-decode envelope: %v", err)
		}
		if env.Event == "" {
			t.Errorf("encode(%+v) produced empty event: %s", want, wire)
		}
	}
}

func TestEncodeSuspendedWireShape(t *testing.T) {
	wire, err := encode(OutSuspended(42))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"event":"suspended","data":42}`
	if wire != want {
		t.Errorf("wire = %s, want %s", wire, want)
	}
}
