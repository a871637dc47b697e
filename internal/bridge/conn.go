// Package bridge owns the single link to the Bitwig controller extension
// and serializes operator calls through it.
//
// The extension dials in as a TCP client (Bitwig's remote socket receive
// callback is unreliable in server mode, so the roles are inverted). The
// bridge accepts that connection, keeps at most one live, and proxies
// JSON-RPC calls onto it.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/wire"
)

var (
	// ErrNotConnected is returned when no device connection is held.
	// The message is part of the operator-visible protocol surface.
	ErrNotConnected = errors.New("Bitwig not connected")

	// ErrSuperseded is returned to callers whose connection was replaced
	// by a newer one while their call was in flight.
	ErrSuperseded = errors.New("device connection superseded")
)

type callResult struct {
	resp wire.Response
	err  error
}

// Conn is one live connection to the controller extension. A single read
// pump demultiplexes incoming frames: responses are correlated to callers
// through a pending table keyed by request id, and id-less notifications
// go to the at-most-one registered progress subscriber.
type Conn struct {
	transport net.Conn
	remote    string
	gen       uint64

	nextID  atomic.Uint64
	writeMu sync.Mutex

	// progressMu serializes progress-capable calls so notifications are
	// always attributable to exactly one in-flight call.
	progressMu sync.Mutex

	mu       sync.Mutex
	pending  map[uint64]chan callResult
	progress *[]wire.Notification
	closeErr error
}

// NewConn wraps an accepted transport. The caller starts the read pump
// with Serve.
func NewConn(transport net.Conn) *Conn {
	return &Conn{
		transport: transport,
		remote:    transport.RemoteAddr().String(),
		pending:   map[uint64]chan callResult{},
	}
}

// RemoteAddr reports the device's address for logs and state snapshots.
func (c *Conn) RemoteAddr() string { return c.remote }

// Generation reports the tag assigned by the Manager when this
// connection became current.
func (c *Conn) Generation() uint64 { return c.gen }

// Inflight reports the number of calls awaiting a response.
func (c *Conn) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Serve runs the read pump until the transport fails or the connection
// is closed. It always returns a non-nil cause.
func (c *Conn) Serve() error {
	for {
		payload, err := wire.ReadFrame(c.transport)
		if err != nil {
			err = fmt.Errorf("device read: %w", err)
			c.shutdown(err)
			return err
		}
		msg, err := wire.DecodeMessage(payload)
		if err != nil {
			err = fmt.Errorf("device sent undecodable frame: %w", err)
			c.shutdown(err)
			return err
		}
		switch {
		case msg.Response != nil:
			c.dispatchResponse(*msg.Response)
		case msg.Notification != nil:
			c.dispatchNotification(*msg.Notification)
		default:
			// The extension never initiates requests; ignore.
			logx.Log.Debug().Str("component", "bridge").Str("method", msg.Request.Method).
				Msg("ignoring device-initiated request")
		}
	}
}

func (c *Conn) dispatchResponse(resp wire.Response) {
	var id uint64
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		logx.Log.Warn().Str("component", "bridge").RawJSON("id", resp.ID).
			Msg("response with unknown id shape dropped")
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		logx.Log.Warn().Str("component", "bridge").Uint64("id", id).
			Msg("response without matching call dropped")
		return
	}
	ch <- callResult{resp: resp}
}

func (c *Conn) dispatchNotification(n wire.Notification) {
	c.mu.Lock()
	sink := c.progress
	if sink != nil {
		*sink = append(*sink, n)
	}
	c.mu.Unlock()
	if sink == nil {
		logx.Log.Debug().Str("component", "bridge").Str("method", n.Method).
			Msg("notification with no subscriber dropped")
	}
}

// shutdown closes the transport and fails every pending and future call
// with cause. Safe to invoke more than once; the first cause wins.
func (c *Conn) shutdown(cause error) {
	c.mu.Lock()
	if c.closeErr != nil {
		c.mu.Unlock()
		return
	}
	c.closeErr = cause
	pending := c.pending
	c.pending = map[uint64]chan callResult{}
	c.mu.Unlock()

	_ = c.transport.Close()
	for _, ch := range pending {
		ch <- callResult{err: cause}
	}
}

// supersede fails the connection because a newer one replaced it.
func (c *Conn) supersede() {
	c.shutdown(ErrSuperseded)
}

func (c *Conn) register(id uint64) (chan callResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return nil, c.closeErr
	}
	ch := make(chan callResult, 1)
	c.pending[id] = ch
	return ch, nil
}

func (c *Conn) unregister(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) write(req wire.Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WriteMessage(c.transport, req)
}

// Call sends one request and waits for the matching response. Ids are
// allocated from a per-connection counter starting at 1; the read pump
// routes the response back by id, so concurrent callers never steal each
// other's replies even if the device were to reorder them.
func (c *Conn) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch, err := c.register(id)
	if err != nil {
		return nil, err
	}
	defer c.unregister(id)

	if err := c.write(wire.NewRequest(id, method, params)); err != nil {
		return nil, fmt.Errorf("device write: %w", err)
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.resp.Err != nil {
			return nil, r.resp.Err
		}
		if len(r.resp.Result) == 0 {
			return nil, errors.New("no result in response")
		}
		return r.resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CallWithProgress behaves like Call but also collects the id-less
// notification frames the device emits before its terminal response, in
// arrival order. Progress-capable calls are serialized per connection so
// every notification belongs to exactly one call.
func (c *Conn) CallWithProgress(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, []wire.Notification, error) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()

	var notes []wire.Notification
	c.mu.Lock()
	c.progress = &notes
	c.mu.Unlock()

	result, err := c.Call(ctx, method, params)

	// Detach the sink before reading notes so a stray notification
	// arriving after the terminal response cannot race the return.
	c.mu.Lock()
	c.progress = nil
	c.mu.Unlock()
	return result, notes, err
}
