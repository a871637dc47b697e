package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/groovelink/groovelink/internal/wire"
)

func TestManagerNotConnected(t *testing.T) {
	m := NewManager()
	if m.IsConnected() {
		t.Fatalf("empty manager reports connected")
	}
	_, err := m.Call(context.Background(), "info.get", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err.Error() != "Bitwig not connected" {
		t.Fatalf("operator-visible message changed: %q", err.Error())
	}
}

func TestManagerSingleSlotReplacement(t *testing.T) {
	m := NewManager()

	first, firstDev := newTestConn(t)
	m.Set(first)
	if !m.IsConnected() {
		t.Fatalf("manager not connected after Set")
	}
	if first.Generation() != 1 {
		t.Fatalf("first generation = %d, want 1", first.Generation())
	}

	second, secondDev := newTestConn(t)
	m.Set(second)
	if second.Generation() != 2 {
		t.Fatalf("second generation = %d, want 2", second.Generation())
	}
	if !m.IsConnected() {
		t.Fatalf("manager lost connection on replacement")
	}

	// Calls go to the second device only; the first is never consulted.
	go func() {
		req := secondDev.readRequest()
		secondDev.respond(req.ID, `"from-second"`)
	}()
	firstConsulted := make(chan struct{}, 1)
	go func() {
		if _, err := wire.ReadFrame(firstDev.conn); err == nil {
			firstConsulted <- struct{}{}
		}
	}()
	result, err := m.Call(context.Background(), "info.get", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(result) != `"from-second"` {
		t.Fatalf("unexpected result: %s", result)
	}
	select {
	case <-firstConsulted:
		t.Fatalf("superseded connection received traffic")
	default:
	}
}

func TestManagerSupersededCallFailsFast(t *testing.T) {
	m := NewManager()
	first, firstDev := newTestConn(t)
	m.Set(first)

	done := make(chan error, 1)
	go func() {
		_, err := first.Call(context.Background(), "info.get", nil)
		done <- err
	}()
	firstDev.readRequest() // the device stalls and never answers

	second, _ := newTestConn(t)
	m.Set(second)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("expected ErrSuperseded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("in-flight call still blocked after supersession")
	}
}

func TestManagerClearIf(t *testing.T) {
	m := NewManager()
	first, _ := newTestConn(t)
	m.Set(first)
	second, _ := newTestConn(t)
	m.Set(second)

	if m.ClearIf(first) {
		t.Fatalf("ClearIf removed a superseded connection")
	}
	if !m.IsConnected() {
		t.Fatalf("slot cleared for stale connection")
	}
	if !m.ClearIf(second) {
		t.Fatalf("ClearIf refused the current connection")
	}
	if m.IsConnected() {
		t.Fatalf("slot still occupied after ClearIf")
	}
	_, err := m.Call(context.Background(), "info.get", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after clear, got %v", err)
	}
}

func TestManagerSnapshot(t *testing.T) {
	m := NewManager()
	if s := m.Snapshot(); s.Connected {
		t.Fatalf("empty snapshot reports connected")
	}
	c, _ := newTestConn(t)
	m.Set(c)
	s := m.Snapshot()
	if !s.Connected || s.Generation != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
}
