// groovelink bridges the Bitwig Studio controller extension (which dials
// in as a TCP client) with local operator clients and, optionally, an
// MCP assistant transport on stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/groovelink/groovelink/internal/assistant"
	"github.com/groovelink/groovelink/internal/bridge"
	"github.com/groovelink/groovelink/internal/config"
	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/metrics"
	"github.com/groovelink/groovelink/internal/operator"
	"github.com/groovelink/groovelink/internal/status"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.Config
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.BindFlags()
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "groovelink version=%s sha=%s date=%s\n\n", version, buildSHA, buildDate)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Printf("groovelink version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	logx.Configure(cfg.LogLevel)
	metrics.SetBuildInfo(version, buildSHA, buildDate)

	logx.Log.Info().Str("version", version).
		Int("device_port", cfg.DevicePort).
		Int("operator_port", cfg.OperatorPort).
		Bool("mcp_stdio", cfg.MCPStdio).
		Msg("groovelink starting")

	mgr := bridge.NewManager()
	ops := operator.NewServer(mgr, cfg.ProgressMethods)
	st := status.NewServer(version, mgr, ops, metrics.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 3)
	go func() { errCh <- bridge.ListenDevice(ctx, cfg.DeviceAddr(), mgr) }()
	go func() { errCh <- ops.Listen(ctx, cfg.OperatorAddr()) }()
	go func() { errCh <- st.Serve(ctx, cfg.StatusAddr(), cfg.AllowedOrigins) }()

	if cfg.MCPStdio {
		go func() {
			if err := assistant.ServeStdio(assistant.NewServer(mgr, version)); err != nil {
				logx.Log.Error().Err(err).Msg("mcp stdio server stopped")
			}
			// The assistant owns our stdio; once it hangs up there is
			// nothing left to serve it, so shut the process down.
			stop()
		}()
	}

	select {
	case err := <-errCh:
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("listener failed")
		}
	case <-ctx.Done():
	}
	logx.Log.Info().Msg("groovelink shutting down")
}
