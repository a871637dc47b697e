package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Version is the JSON-RPC protocol version carried by every message.
const Version = "2.0"

// CodeInternalError is the uniform code for relay failures: device not
// connected, decode failures, and device-reported errors forwarded to
// operators.
const CodeInternalError = -32603

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result or Err is
// set on a well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Err     *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Notification is an id-less request used for progress events.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is a JSON-RPC 2.0 error object. It implements error so device
// failures can travel through ordinary error returns.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a request with the given id. A nil params becomes an
// empty object so the device always sees a params field.
func NewRequest(id uint64, method string, params json.RawMessage) Request {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	idRaw, _ := json.Marshal(id)
	return Request{JSONRPC: Version, Method: method, Params: params, ID: idRaw}
}

// NewResponse builds a success response echoing id.
func NewResponse(id json.RawMessage, result json.RawMessage) Response {
	return Response{JSONRPC: Version, Result: result, ID: id}
}

// NewErrorResponse builds an error response echoing id.
func NewErrorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: Version, Err: &Error{Code: code, Message: message}, ID: id}
}

// ErrMalformed is returned by DecodeMessage when a payload is valid JSON
// but not a recognizable JSON-RPC request, response, or notification.
var ErrMalformed = errors.New("malformed json-rpc message")

// Message holds the result of classifying one decoded frame. Exactly one
// of the three fields is non-nil.
type Message struct {
	Request      *Request
	Response     *Response
	Notification *Notification
}

// DecodeMessage classifies payload as a request, response, or
// notification. A message with a method and no id is a notification; a
// method with an id is a request; an id with a result or error is a
// response.
func DecodeMessage(payload []byte) (Message, error) {
	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  *string         `json:"method"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	hasID := len(probe.ID) > 0 && string(probe.ID) != "null"
	switch {
	case probe.Method != nil && !hasID:
		var n Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return Message{}, fmt.Errorf("decode notification: %w", err)
		}
		return Message{Notification: &n}, nil
	case probe.Method != nil:
		var r Request
		if err := json.Unmarshal(payload, &r); err != nil {
			return Message{}, fmt.Errorf("decode request: %w", err)
		}
		return Message{Request: &r}, nil
	case hasID && (len(probe.Result) > 0 || len(probe.Error) > 0):
		var r Response
		if err := json.Unmarshal(payload, &r); err != nil {
			return Message{}, fmt.Errorf("decode response: %w", err)
		}
		return Message{Response: &r}, nil
	default:
		return Message{}, ErrMalformed
	}
}

// DecodeRequest decodes payload as a request, rejecting anything that
// lacks a method or the protocol version.
func DecodeRequest(payload []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(payload, &r); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if r.JSONRPC != Version || r.Method == "" {
		return Request{}, ErrMalformed
	}
	return r, nil
}

// WriteMessage marshals v and writes it as one frame.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return WriteFrame(w, payload)
}
