package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type fakeCaller struct {
	connected bool
	result    json.RawMessage
	err       error
	gotMethod string
}

func (f *fakeCaller) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	f.gotMethod = method
	return f.result, f.err
}

func (f *fakeCaller) IsConnected() bool { return f.connected }

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestRelayToolSuccess(t *testing.T) {
	fc := &fakeCaller{result: json.RawMessage(`{"projectName":"Demo","apiVersion":19}`)}
	res, err := relayTool(fc, "info.get")(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %v", res.Content)
	}
	if fc.gotMethod != "info.get" {
		t.Fatalf("relayed method %q, want info.get", fc.gotMethod)
	}
	text := textOf(t, res)
	if !strings.Contains(text, `"projectName": "Demo"`) {
		t.Fatalf("result not pretty-printed: %q", text)
	}
}

func TestRelayToolError(t *testing.T) {
	fc := &fakeCaller{err: errors.New("Bitwig not connected")}
	res, err := relayTool(fc, "list.tracks")(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
	if text := textOf(t, res); text != "Bitwig not connected" {
		t.Fatalf("unexpected error text: %q", text)
	}
}

func TestStatusTool(t *testing.T) {
	for _, connected := range []bool{true, false} {
		fc := &fakeCaller{connected: connected}
		res, err := statusTool(fc)(context.Background(), mcp.CallToolRequest{})
		if err != nil {
			t.Fatalf("handler: %v", err)
		}
		want := "Bitwig connected: false"
		if connected {
			want = "Bitwig connected: true"
		}
		if text := textOf(t, res); text != want {
			t.Fatalf("status text %q, want %q", text, want)
		}
	}
}

func TestNewServerConstructs(t *testing.T) {
	if s := NewServer(&fakeCaller{}, "test"); s == nil {
		t.Fatalf("NewServer returned nil")
	}
}
