package bridge

import (
	"context"
	"net"

	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/metrics"
)

// ListenDevice accepts controller extension connections on addr and
// installs each one as the current device connection, superseding any
// prior one. Accept errors are logged and the loop keeps accepting. The
// loop stops when ctx is cancelled.
func ListenDevice(ctx context.Context, addr string, mgr *Manager) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeDevice(ctx, ln, mgr)
}

// ServeDevice runs the device accept loop on an existing listener.
func ServeDevice(ctx context.Context, ln net.Listener, mgr *Manager) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	logx.Log.Info().Str("component", "bridge").Str("addr", ln.Addr().String()).
		Msg("device listener started")

	for {
		transport, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logx.Log.Error().Err(err).Str("component", "bridge").Msg("device accept failed")
			continue
		}
		if tc, ok := transport.(*net.TCPConn); ok {
			// Frames are small; favor latency over coalescing.
			if err := tc.SetNoDelay(true); err != nil {
				logx.Log.Warn().Err(err).Str("component", "bridge").Msg("set nodelay failed")
			}
		}
		conn := NewConn(transport)
		mgr.Set(conn)
		metrics.DeviceConnected()

		go func() {
			err := conn.Serve()
			if mgr.ClearIf(conn) {
				logx.Log.Info().Err(err).Str("component", "bridge").
					Uint64("generation", conn.Generation()).Msg("device connection lost")
			}
		}()
	}
}
