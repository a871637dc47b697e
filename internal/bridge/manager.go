package bridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/wire"
)

// Manager holds at most one current device connection. The handle is an
// explicitly owned value passed to every listener at construction; there
// is no ambient global. Replacing the connection is an atomic swap of the
// slot, and the superseded connection fails its in-flight callers fast
// rather than leaving them blocked against a dead transport.
type Manager struct {
	mu   sync.RWMutex
	conn *Conn
	gen  uint64
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Set installs c as the current connection, tagging it with the next
// generation. Any previously held connection is superseded
// unconditionally; there is no draining of its in-flight calls.
func (m *Manager) Set(c *Conn) {
	m.mu.Lock()
	m.gen++
	c.gen = m.gen
	old := m.conn
	m.conn = c
	m.mu.Unlock()

	if old != nil {
		logx.Log.Info().Str("component", "bridge").Uint64("generation", old.gen).
			Msg("device connection superseded")
		old.supersede()
	}
	logx.Log.Info().Str("component", "bridge").Uint64("generation", c.gen).
		Str("remote", c.RemoteAddr()).Msg("device connection established")
}

// ClearIf drops the slot if c is still the current connection. Used by
// the accept loop when a connection's read pump exits, so a dead device
// surfaces as "not connected" instead of a stalled call.
func (m *Manager) ClearIf(c *Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != c {
		return false
	}
	m.conn = nil
	return true
}

// IsConnected reports whether a device connection is currently held.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil
}

// current snapshots the slot. A replacement arriving after the snapshot
// is deliberately not prevented; the snapshotted connection is used to
// completion (or fast failure once superseded).
func (m *Manager) current() *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// Call relays one request/response exchange to the device.
func (m *Manager) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	c := m.current()
	if c == nil {
		return nil, ErrNotConnected
	}
	return c.Call(ctx, method, params)
}

// CallWithProgress relays one exchange and returns interleaved progress
// notifications alongside the result.
func (m *Manager) CallWithProgress(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, []wire.Notification, error) {
	c := m.current()
	if c == nil {
		return nil, nil, ErrNotConnected
	}
	return c.CallWithProgress(ctx, method, params)
}

// State is a point-in-time view of the device link for the status API.
type State struct {
	Connected  bool   `json:"connected"`
	Generation uint64 `json:"generation,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Inflight   int    `json:"inflight"`
}

// Snapshot returns the current device link state.
func (m *Manager) Snapshot() State {
	c := m.current()
	if c == nil {
		return State{}
	}
	return State{
		Connected:  true,
		Generation: c.Generation(),
		RemoteAddr: c.RemoteAddr(),
		Inflight:   c.Inflight(),
	}
}
