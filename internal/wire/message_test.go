package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeMessageClassification(t *testing.T) {
	cases := []struct {
		name string
		in   string
		kind string
	}{
		{"request", `{"jsonrpc":"2.0","method":"info.get","params":{},"id":1}`, "request"},
		{"request string id", `{"jsonrpc":"2.0","method":"info.get","id":"abc"}`, "request"},
		{"notification", `{"jsonrpc":"2.0","method":"track.progress","params":{"step":1}}`, "notification"},
		{"result response", `{"jsonrpc":"2.0","result":["Track 1"],"id":3}`, "response"},
		{"error response", `{"jsonrpc":"2.0","error":{"code":-32601,"message":"nope"},"id":3}`, "response"},
	}
	for _, c := range cases {
		msg, err := DecodeMessage([]byte(c.in))
		if err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		var kind string
		switch {
		case msg.Request != nil:
			kind = "request"
		case msg.Response != nil:
			kind = "response"
		case msg.Notification != nil:
			kind = "notification"
		}
		if kind != c.kind {
			t.Fatalf("%s: classified as %s, want %s", c.name, kind, c.kind)
		}
	}
}

func TestDecodeMessageMalformed(t *testing.T) {
	for _, in := range []string{
		`{"jsonrpc":"2.0"}`,
		`{"jsonrpc":"2.0","id":1}`,
	} {
		if _, err := DecodeMessage([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", in, err)
		}
	}
	for _, in := range []string{`not json`, `42`} {
		if _, err := DecodeMessage([]byte(in)); err == nil {
			t.Fatalf("%s: expected decode error", in)
		}
	}
}

func TestNewRequestDefaultsParams(t *testing.T) {
	req := NewRequest(1, "info.get", nil)
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"params":{}`) {
		t.Fatalf("expected empty params object, got %s", b)
	}
	if !strings.Contains(string(b), `"id":1`) {
		t.Fatalf("expected id 1, got %s", b)
	}
}

func TestErrorResponseShape(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage(`7`), CodeInternalError, "Bitwig not connected")
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Response
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Err == nil || decoded.Err.Code != CodeInternalError {
		t.Fatalf("expected error code %d, got %+v", CodeInternalError, decoded.Err)
	}
	if len(decoded.Result) != 0 {
		t.Fatalf("error response must not carry a result")
	}
	if string(decoded.ID) != "7" {
		t.Fatalf("id not echoed: %s", decoded.ID)
	}
}

func TestWriteMessageFrames(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(json.RawMessage(`1`), json.RawMessage(`"ok"`))
	if err := WriteMessage(&buf, resp); err != nil {
		t.Fatalf("write message: %v", err)
	}
	payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	msg, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Response == nil || string(msg.Response.Result) != `"ok"` {
		t.Fatalf("round trip mismatch: %s", payload)
	}
}
