// Package config loads vibecad settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/vibecad/pkg/backend"
	"github.com/chazu/vibecad/pkg/backend/live"
	"github.com/chazu/vibecad/pkg/generator"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "vibecad.yaml"

// Config holds all vibecad settings.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Execution ExecutionConfig  `yaml:"execution"`
	Generator generator.Config `yaml:"generator"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	RunTimeout      string `yaml:"run_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ExecutionConfig configures D-File execution.
type ExecutionConfig struct {
	DefaultMode string      `yaml:"default_mode"`
	Live        live.Config `yaml:"live"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			RunTimeout:      "2m",
			ShutdownTimeout: "10s",
		},
		Execution: ExecutionConfig{
			DefaultMode: string(backend.ModeMock),
			Live: live.Config{
				Kernel:    live.DefaultKernel,
				OutputDir: "out",
			},
		},
		Generator: generator.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		c.Generator.DeepSeek.APIKey = key
	}
	if key := os.Getenv("HF_INFERENCE_TOKEN"); key != "" {
		c.Generator.HuggingFace.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Generator.Gemini.APIKey = key
	}
	if p := os.Getenv("VIBECAD_PROVIDER"); p != "" {
		c.Generator.Provider = strings.ToLower(strings.TrimSpace(p))
	}
	if addr := os.Getenv("VIBECAD_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetRunTimeout returns the per-run execution deadline.
func (c *Config) GetRunTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.RunTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// GetShutdownTimeout returns the graceful shutdown deadline.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DefaultMode returns the configured execution mode.
func (c *Config) DefaultMode() backend.Mode {
	m, err := backend.ParseMode(c.Execution.DefaultMode)
	if err != nil {
		return backend.ModeMock
	}
	return m
}

// ValidProviders lists all supported generator providers.
var ValidProviders = []string{
	generator.ProviderAuto,
	generator.ProviderDeepSeek,
	generator.ProviderHuggingFace,
	generator.ProviderGemini,
	generator.ProviderReplay,
}

func validProvider(name string) bool {
	for _, p := range ValidProviders {
		if name == p {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address not configured")
	}
	for _, d := range []struct{ name, value string }{
		{"server.run_timeout", c.Server.RunTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}
	if _, err := backend.ParseMode(c.Execution.DefaultMode); err != nil {
		return fmt.Errorf("invalid execution.default_mode: %w", err)
	}
	if c.Execution.Live.MeshCells < 0 {
		return fmt.Errorf("execution.live.mesh_cells must not be negative")
	}
	if p := c.Generator.Provider; p != "" && !validProvider(p) {
		return fmt.Errorf("invalid generator provider: %s (valid: %v)", p, ValidProviders)
	}
	for _, p := range c.Generator.Fallback {
		if p == generator.ProviderAuto || !validProvider(p) {
			return fmt.Errorf("invalid generator fallback: %s", p)
		}
	}
	if c.Generator.Provider == generator.ProviderReplay && c.Generator.Replay.Path == "" {
		return fmt.Errorf("generator.replay.path required for replay provider")
	}
	return nil
}
