package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/shard-runtime/document"
)

// DefaultFile is read when -config is not given.
const DefaultFile = "shard.yaml"

// Hosts the CLI can render with.
const (
	HostHTML = "html"
	HostTerm = "term"
	HostWasm = "wasm"
)

// Config represents the optional shard.yaml configuration.
type Config struct {
	Host     string         `yaml:"host,omitempty"`
	Guest    string         `yaml:"guest,omitempty"`
	Viewport ViewportConfig `yaml:"viewport"`
	Document DocumentConfig `yaml:"document"`
	Log      LogConfig      `yaml:"log"`
}

// ViewportConfig is the default root constraint. Zero means unbounded.
type ViewportConfig struct {
	Width  float32 `yaml:"width,omitempty"`
	Height float32 `yaml:"height,omitempty"`
}

// DocumentConfig limits accepted documents.
type DocumentConfig struct {
	Kinds    []string `yaml:"kinds,omitempty"`
	MaxDepth int      `yaml:"max_depth,omitempty"`
}

// LogConfig sets the log level used with -v.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Load reads path. A missing file is an error only when required is set.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = HostTerm
	}
	if cfg.Document.MaxDepth == 0 {
		cfg.Document.MaxDepth = document.DefaultMaxDepth
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Host:     HostTerm,
		Document: DocumentConfig{MaxDepth: document.DefaultMaxDepth},
		Log:      LogConfig{Level: "debug"},
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Host {
	case HostHTML, HostTerm:
	case HostWasm:
		if c.Guest == "" {
			return fmt.Errorf("host %q needs a guest module", c.Host)
		}
	default:
		return fmt.Errorf("unknown host %q", c.Host)
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		return fmt.Errorf("viewport must not be negative, got %gx%g", c.Viewport.Width, c.Viewport.Height)
	}
	if c.Document.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.Document.MaxDepth)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
