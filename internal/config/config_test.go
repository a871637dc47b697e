package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.DevicePort != 8417 || c.OperatorPort != 8418 || c.StatusPort != 8419 {
		t.Fatalf("unexpected default ports: %d %d %d", c.DevicePort, c.OperatorPort, c.StatusPort)
	}
	if c.BindAddr != "127.0.0.1" {
		t.Fatalf("expected loopback bind, got %s", c.BindAddr)
	}
	if c.LogLevel != "info" {
		t.Fatalf("expected info log level, got %s", c.LogLevel)
	}
	if len(c.ProgressMethods) != 1 || c.ProgressMethods[0] != "track.create" {
		t.Fatalf("unexpected progress methods: %v", c.ProgressMethods)
	}
	if c.DeviceAddr() != "127.0.0.1:8417" {
		t.Fatalf("unexpected device addr: %s", c.DeviceAddr())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DEVICE_PORT", "9001")
	t.Setenv("OPERATOR_PORT", "9002")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MCP_STDIO", "true")
	t.Setenv("PROGRESS_METHODS", "track.create, clip.render")

	var c Config
	c.SetDefaults()
	c.ApplyEnv()
	if c.DevicePort != 9001 || c.OperatorPort != 9002 {
		t.Fatalf("env ports not applied: %d %d", c.DevicePort, c.OperatorPort)
	}
	if c.LogLevel != "debug" || !c.MCPStdio {
		t.Fatalf("env overlay incomplete: %+v", c)
	}
	if len(c.ProgressMethods) != 2 || c.ProgressMethods[1] != "clip.render" {
		t.Fatalf("progress methods not split: %v", c.ProgressMethods)
	}
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("DEVICE_PORT", "not-a-port")
	var c Config
	c.SetDefaults()
	c.ApplyEnv()
	if c.DevicePort != 8417 {
		t.Fatalf("garbage env should keep default, got %d", c.DevicePort)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groovelink.yaml")
	data := []byte("device_port: 7000\nlog_level: warn\nprogress_methods:\n  - track.create\n  - clip.render\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	var c Config
	c.SetDefaults()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DevicePort != 7000 || c.LogLevel != "warn" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if len(c.ProgressMethods) != 2 {
		t.Fatalf("progress methods not loaded: %v", c.ProgressMethods)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := resolveConfigPath("linux", "/home/u", "", "groovelink.yaml"); got != "/etc/groovelink/groovelink.yaml" {
		t.Fatalf("linux path: %s", got)
	}
	if got := resolveConfigPath("darwin", "/Users/u", "", "groovelink.yaml"); got != "/Users/u/Library/Application Support/groovelink/groovelink.yaml" {
		t.Fatalf("darwin path: %s", got)
	}
}
