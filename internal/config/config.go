// Package config holds bridge configuration layered from defaults, an
// optional YAML file, environment variables, and command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config configures the groovelink bridge.
type Config struct {
	BindAddr        string   `yaml:"bind_addr"`
	DevicePort      int      `yaml:"device_port"`
	OperatorPort    int      `yaml:"operator_port"`
	StatusPort      int      `yaml:"status_port"`
	LogLevel        string   `yaml:"log_level"`
	MCPStdio        bool     `yaml:"mcp_stdio"`
	ProgressMethods []string `yaml:"progress_methods"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ConfigFile      string   `yaml:"-"`
}

// SetDefaults initializes c with built-in defaults.
func (c *Config) SetDefaults() {
	if c.BindAddr == "" {
		// Loopback only; the bridge is a local companion process.
		c.BindAddr = "127.0.0.1"
	}
	if c.DevicePort == 0 {
		c.DevicePort = 8417
	}
	if c.OperatorPort == 0 {
		c.OperatorPort = 8418
	}
	if c.StatusPort == 0 {
		c.StatusPort = 8419
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ProgressMethods == nil {
		c.ProgressMethods = []string{"track.create"}
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultConfigPath("groovelink.yaml")
	}
}

// ApplyEnv overlays environment variables onto the current values.
func (c *Config) ApplyEnv() {
	if v := getEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("BIND_ADDR", ""); v != "" {
		c.BindAddr = v
	}
	if v := getEnv("DEVICE_PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DevicePort = n
		}
	}
	if v := getEnv("OPERATOR_PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OperatorPort = n
		}
	}
	if v := getEnv("STATUS_PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StatusPort = n
		}
	}
	if v := getEnv("MCP_STDIO", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MCPStdio = b
		}
	}
	if v := getEnv("PROGRESS_METHODS", ""); v != "" {
		c.ProgressMethods = splitComma(v)
	}
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitComma(v)
	}
}

// BindFlags binds command line flags using the current values as
// defaults, so main can call flag.Parse after layering file and env.
func (c *Config) BindFlags() {
	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "config file path")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	flag.StringVar(&c.BindAddr, "bind", c.BindAddr, "address the listeners bind to")
	flag.IntVar(&c.DevicePort, "device-port", c.DevicePort, "TCP port the Bitwig controller extension dials in to")
	flag.IntVar(&c.OperatorPort, "operator-port", c.OperatorPort, "TCP port operator clients connect to")
	flag.IntVar(&c.StatusPort, "status-port", c.StatusPort, "HTTP port for health, state and metrics")
	flag.BoolVar(&c.MCPStdio, "mcp", c.MCPStdio, "serve the assistant MCP transport on stdio")
	flag.Func("progress-methods", "comma separated list of methods that emit progress notifications", func(v string) error {
		c.ProgressMethods = splitComma(v)
		return nil
	})
	flag.Func("allowed-origins", "comma separated list of allowed CORS origins for the status API", func(v string) error {
		c.AllowedOrigins = splitComma(v)
		return nil
	})
}

// LoadFile populates the config from a YAML file.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// DeviceAddr returns the device listener address.
func (c *Config) DeviceAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.DevicePort)
}

// OperatorAddr returns the operator listener address.
func (c *Config) OperatorAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.OperatorPort)
}

// StatusAddr returns the status server address.
func (c *Config) StatusAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.StatusPort)
}

// DefaultConfigPath returns the default config file path for name.
func DefaultConfigPath(name string) string {
	home, _ := os.UserHomeDir()
	return resolveConfigPath(runtime.GOOS, home, os.Getenv("ProgramData"), name)
}

func resolveConfigPath(goos, home, programData, name string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "groovelink", name)
	case "windows":
		if programData == "" {
			programData = "C:/ProgramData"
		}
		programData = strings.TrimRight(programData, "\\/")
		return filepath.Join(programData, "groovelink", name)
	default:
		return filepath.Join("/etc", "groovelink", name)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitComma(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
