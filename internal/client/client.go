// Package client is the operator-side library for talking to the bridge:
// JSON-RPC 2.0 over length-prefixed TCP frames. Used by groovectl and by
// integration tests.
package client

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/groovelink/groovelink/internal/wire"
)

// DefaultTimeout bounds a single call when the caller does not override
// it. Progress-bearing calls refresh the deadline on every frame, so a
// slow multi-step operation only has to keep emitting progress.
const DefaultTimeout = 5 * time.Second

// Client is a connected operator. Not safe for concurrent use; open one
// client per goroutine.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	nextID  uint64
}

// Dial connects to the bridge's operator port. A timeout of zero means
// no deadline on calls.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(method string, params any) (uint64, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return 0, fmt.Errorf("encode params: %w", err)
		}
		raw = b
	}
	c.nextID++
	id := c.nextID
	if err := c.refreshDeadline(); err != nil {
		return 0, err
	}
	if err := wire.WriteMessage(c.conn, wire.NewRequest(id, method, raw)); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Client) refreshDeadline() error {
	if c.timeout <= 0 {
		return c.conn.SetDeadline(time.Time{})
	}
	return c.conn.SetDeadline(time.Now().Add(c.timeout))
}

// Call issues one request and returns the result, or the bridge's error
// object as a *wire.Error.
func (c *Client) Call(method string, params any) (json.RawMessage, error) {
	result, err := c.exchange(method, params, nil)
	return result, err
}

// CallWithProgress issues one request and invokes onProgress for each
// notification frame that arrives before the terminal response.
func (c *Client) CallWithProgress(method string, params any, onProgress func(wire.Notification)) (json.RawMessage, error) {
	return c.exchange(method, params, onProgress)
}

func (c *Client) exchange(method string, params any, onProgress func(wire.Notification)) (json.RawMessage, error) {
	id, err := c.send(method, params)
	if err != nil {
		return nil, err
	}
	for {
		payload, err := wire.ReadFrame(c.conn)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		msg, err := wire.DecodeMessage(payload)
		if err != nil {
			return nil, err
		}
		switch {
		case msg.Notification != nil:
			if onProgress != nil {
				onProgress(*msg.Notification)
			}
			if err := c.refreshDeadline(); err != nil {
				return nil, err
			}
		case msg.Response != nil:
			var gotID uint64
			if err := json.Unmarshal(msg.Response.ID, &gotID); err != nil || gotID != id {
				return nil, fmt.Errorf("response id %s does not match request %d", msg.Response.ID, id)
			}
			if msg.Response.Err != nil {
				return nil, msg.Response.Err
			}
			return msg.Response.Result, nil
		default:
			return nil, fmt.Errorf("unexpected request frame from bridge")
		}
	}
}
