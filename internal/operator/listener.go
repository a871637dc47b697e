// Package operator accepts operator connections (CLI or other local
// tooling) and proxies their JSON-RPC calls through the bridge.
package operator

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/groovelink/groovelink/internal/bridge"
	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/metrics"
	"github.com/groovelink/groovelink/internal/wire"
)

// Server relays operator requests to the device connection manager. Each
// accepted connection runs independently; a failure on one never affects
// the others or the device link.
type Server struct {
	mgr      *bridge.Manager
	progress map[string]struct{}

	mu    sync.Mutex
	conns map[string]*connInfo
}

type connInfo struct {
	remote   string
	requests int
}

// NewServer builds a Server. progressMethods names the calls for which
// the device emits progress notifications before its terminal response.
func NewServer(mgr *bridge.Manager, progressMethods []string) *Server {
	set := make(map[string]struct{}, len(progressMethods))
	for _, m := range progressMethods {
		set[m] = struct{}{}
	}
	return &Server{mgr: mgr, progress: set, conns: map[string]*connInfo{}}
}

// Listen accepts operator connections on addr until ctx is cancelled.
// Accept errors are logged and the loop keeps accepting.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	logx.Log.Info().Str("component", "operator").Str("addr", ln.Addr().String()).
		Msg("operator listener started")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logx.Log.Error().Err(err).Str("component", "operator").Msg("operator accept failed")
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	info := &connInfo{remote: conn.RemoteAddr().String()}
	s.mu.Lock()
	s.conns[id] = info
	s.mu.Unlock()
	metrics.OperatorConnected()
	logx.Log.Info().Str("component", "operator").Str("conn_id", id).
		Str("remote", info.remote).Msg("operator connected")

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		metrics.OperatorDisconnected()
		logx.Log.Info().Str("component", "operator").Str("conn_id", id).Msg("operator disconnected")
	}()

	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			// Stream closed or broken; there is no request id to reply to.
			logx.Log.Debug().Err(err).Str("component", "operator").Str("conn_id", id).
				Msg("operator read ended")
			return
		}
		req, err := wire.DecodeRequest(payload)
		if err != nil {
			logx.Log.Warn().Err(err).Str("component", "operator").Str("conn_id", id).
				Msg("undecodable operator request; closing")
			return
		}
		s.mu.Lock()
		info.requests++
		s.mu.Unlock()

		if !s.dispatch(ctx, conn, id, req) {
			return
		}
	}
}

// dispatch relays one request and writes the outcome back. It returns
// false when the operator connection must be torn down.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, connID string, req wire.Request) bool {
	logx.Log.Debug().Str("component", "operator").Str("conn_id", connID).
		Str("method", req.Method).RawJSON("id", req.ID).Msg("relaying call")
	metrics.CallStart()

	var (
		result json.RawMessage
		notes  []wire.Notification
		err    error
	)
	if _, ok := s.progress[req.Method]; ok {
		result, notes, err = s.mgr.CallWithProgress(ctx, req.Method, req.Params)
	} else {
		result, err = s.mgr.Call(ctx, req.Method, req.Params)
	}

	if err != nil {
		metrics.CallEnd("error")
		logx.Log.Warn().Err(err).Str("component", "operator").Str("conn_id", connID).
			Str("method", req.Method).Msg("call failed")
		resp := wire.NewErrorResponse(req.ID, wire.CodeInternalError, err.Error())
		if werr := wire.WriteMessage(conn, resp); werr != nil {
			logx.Log.Warn().Err(werr).Str("component", "operator").Str("conn_id", connID).
				Msg("error response write failed; closing")
			return false
		}
		return true
	}
	metrics.CallEnd("ok")

	// Forward accumulated notifications first, in arrival order. A failed
	// notification write is logged but does not abort the exchange; the
	// terminal response is what the operator is waiting on.
	for _, n := range notes {
		if werr := wire.WriteMessage(conn, n); werr != nil {
			logx.Log.Warn().Err(werr).Str("component", "operator").Str("conn_id", connID).
				Str("method", n.Method).Msg("notification write failed")
			continue
		}
		metrics.NotificationForwarded()
	}

	resp := wire.NewResponse(req.ID, result)
	if werr := wire.WriteMessage(conn, resp); werr != nil {
		logx.Log.Warn().Err(werr).Str("component", "operator").Str("conn_id", connID).
			Msg("response write failed; closing")
		return false
	}
	return true
}

// OperatorState describes one open operator connection.
type OperatorState struct {
	ID         string `json:"id"`
	RemoteAddr string `json:"remote_addr"`
	Requests   int    `json:"requests"`
}

// Snapshot lists the open operator connections for the status API.
func (s *Server) Snapshot() []OperatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OperatorState, 0, len(s.conns))
	for id, c := range s.conns {
		out = append(out, OperatorState{ID: id, RemoteAddr: c.remote, Requests: c.requests})
	}
	return out
}
