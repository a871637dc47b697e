// Package status serves the bridge's local observability surface:
// health, a JSON state snapshot, a websocket state stream, and
// Prometheus metrics.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groovelink/groovelink/internal/bridge"
	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/operator"
)

// State is the full bridge snapshot returned by /api/state.
type State struct {
	Version   string                   `json:"version"`
	Device    bridge.State             `json:"device"`
	Operators []operator.OperatorState `json:"operators"`
}

// Server assembles state snapshots and the HTTP handler around them.
type Server struct {
	version string
	mgr     *bridge.Manager
	ops     *operator.Server
	reg     *prometheus.Registry
}

// NewServer wires the status surface to the bridge internals.
func NewServer(version string, mgr *bridge.Manager, ops *operator.Server, reg *prometheus.Registry) *Server {
	return &Server{version: version, mgr: mgr, ops: ops, reg: reg}
}

func (s *Server) snapshot() State {
	return State{
		Version:   s.version,
		Device:    s.mgr.Snapshot(),
		Operators: s.ops.Snapshot(),
	}
}

// Handler builds the chi router. CORS is enabled only when
// allowedOrigins is non-empty.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/state", s.handleState)
		ar.Get("/state/ws", s.handleStateWS)
	})
	return r
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot())
}

// handleStateWS pushes a state snapshot once a second until the peer
// goes away.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	ctx := c.CloseRead(r.Context())
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		b, err := json.Marshal(s.snapshot())
		if err != nil {
			return
		}
		if err := c.Write(ctx, websocket.MessageText, b); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Serve runs the status HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string, allowedOrigins []string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(allowedOrigins)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logx.Log.Info().Str("component", "status").Str("addr", addr).Msg("status server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
