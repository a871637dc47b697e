// Package wire implements the length-prefixed JSON-RPC 2.0 framing used
// between the bridge, the Bitwig controller extension, and operator clients.
//
// Each frame is a 4-byte big-endian length followed by exactly that many
// bytes of UTF-8 JSON. One JSON-RPC object per frame.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize caps a single frame payload at 10 MiB.
const MaxFrameSize = 10 * 1024 * 1024

const headerSize = 4

// ErrFrameTooLarge is returned when a frame header declares a payload
// larger than MaxFrameSize. The body is never read.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one complete frame from r and returns its payload.
// It performs no buffering across calls: each call consumes exactly one
// header and one body, or fails.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload as one frame. Header and body go out in a
// single Write call so two frames from the same writer can never
// interleave mid-frame; callers serialize whole frames with a lock.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
