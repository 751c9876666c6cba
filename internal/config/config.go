// Package config handles loading and managing freecad-mcp configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the freecad-mcp server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	FreeCAD  FreeCADConfig  `yaml:"freecad"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// ServerConfig holds the MCP/HTTP listener settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	SSEPath     string `yaml:"sse_path"`
	MessagePath string `yaml:"message_path"`
}

// FreeCADConfig holds the control connection settings for the FreeCAD
// RPC add-on.
type FreeCADConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	CallTimeoutMs int    `yaml:"call_timeout_ms"`
}

// FeedbackConfig controls how tool responses report visual state.
type FeedbackConfig struct {
	// TextOnly disables screenshot feedback; responses carry text only.
	TextOnly bool `yaml:"text_only"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			SSEPath:     "/sse",
			MessagePath: "/messages",
		},
		FreeCAD: FreeCADConfig{
			Host:          "localhost",
			Port:          9875,
			CallTimeoutMs: 30000,
		},
		Feedback: FeedbackConfig{
			TextOnly: false,
		},
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".freecad-mcp", "config.yaml")
}

// Load reads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate normalizes the endpoint paths and rejects malformed settings.
func (c *Config) Validate() error {
	ssePath, err := NormalizeRelativePath(c.Server.SSEPath)
	if err != nil {
		return fmt.Errorf("sse path: %w", err)
	}
	messagePath, err := NormalizeRelativePath(c.Server.MessagePath)
	if err != nil {
		return fmt.Errorf("message path: %w", err)
	}
	if ssePath == messagePath {
		return fmt.Errorf("sse path and message path must differ, both are %q", ssePath)
	}
	c.Server.SSEPath = ssePath
	c.Server.MessagePath = messagePath

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.FreeCAD.Port <= 0 || c.FreeCAD.Port > 65535 {
		return fmt.Errorf("freecad port %d out of range", c.FreeCAD.Port)
	}
	if c.FreeCAD.CallTimeoutMs < 0 {
		return fmt.Errorf("call timeout must not be negative")
	}
	return nil
}

// CallTimeout returns the per-call deadline for remote calls.
// A zero duration disables the deadline.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.FreeCAD.CallTimeoutMs) * time.Millisecond
}

// RemoteAddr returns the host:port of the FreeCAD control surface.
func (c *Config) RemoteAddr() string {
	return fmt.Sprintf("%s:%d", c.FreeCAD.Host, c.FreeCAD.Port)
}

// ListenAddr returns the host:port the HTTP/SSE server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// NormalizeRelativePath ensures the provided path is a relative HTTP path
// suitable for mounting: non-empty, no scheme or network location, no query
// string or fragment, with a leading slash.
func NormalizeRelativePath(path string) (string, error) {
	stripped := strings.TrimSpace(path)
	if stripped == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.Contains(stripped, "://") || strings.HasPrefix(stripped, "//") {
		return "", fmt.Errorf("path must be relative and must not include a scheme or network location")
	}
	if strings.ContainsAny(stripped, "?#") {
		return "", fmt.Errorf("path must not contain query strings or fragments")
	}
	if !strings.HasPrefix(stripped, "/") {
		stripped = "/" + stripped
	}
	return stripped, nil
}
