// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v9"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete application configuration.
type Config struct {
	// DefaultProvider is the provider key used when a request does not name
	// one: "gemini", "gpt", or "claude".
	DefaultProvider string `toml:"default_provider" env:"AICHAT_DEFAULT_PROVIDER"`

	Providers ProvidersConfig `toml:"providers"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Export    ExportConfig    `toml:"export"`
}

// ProvidersConfig carries the secrets and model overrides for the remote
// providers. An empty key disables the corresponding provider.
type ProvidersConfig struct {
	GeminiAPIKey     string `toml:"gemini_api_key" env:"GEMINI_API_KEY"`
	HuggingFaceToken string `toml:"huggingface_token" env:"HUGGINGFACE_API_KEY"`
	AnthropicAPIKey  string `toml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	GroqAPIKey       string `toml:"groq_api_key" env:"GROQ_API_KEY"`

	// GeminiModel overrides the Gemini model identifier.
	GeminiModel string `toml:"gemini_model" env:"AICHAT_GEMINI_MODEL"`
}

// ServerConfig contains the HTTP server configuration.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8081".
	Addr string `toml:"addr" env:"AICHAT_ADDR"`

	// AuthToken, when set, requires a Bearer token on every /v1 request.
	AuthToken string `toml:"auth_token" env:"AICHAT_AUTH_TOKEN"`

	// AllowedOrigins lists CORS origins permitted to call the API.
	// "*" allows any origin.
	AllowedOrigins []string `toml:"allowed_origins" env:"AICHAT_ALLOWED_ORIGINS" envSeparator:","`

	// RateLimitPerSec is the sustained request rate allowed per client IP.
	// 0 disables rate limiting.
	RateLimitPerSec float64 `toml:"rate_limit_per_sec" env:"AICHAT_RATE_LIMIT"`

	// RateLimitBurst is the burst size for the rate limiter.
	RateLimitBurst int `toml:"rate_limit_burst" env:"AICHAT_RATE_BURST"`

	// MaxBodyBytes caps the size of request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes" env:"AICHAT_MAX_BODY_BYTES"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite database location.
	// Default: ~/.aichat/chat.db
	DatabasePath string `toml:"database_path" env:"AICHAT_DATABASE_PATH"`
}

// ExportConfig contains export defaults.
type ExportConfig struct {
	// OutputDir is where exported conversation files are written.
	OutputDir string `toml:"output_dir" env:"AICHAT_EXPORT_DIR"`

	// Theme for HTML export: "dark" or "light".
	Theme string `toml:"theme" env:"AICHAT_EXPORT_THEME"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DefaultProvider: "gemini",

		Server: ServerConfig{
			Addr:            "127.0.0.1:8081",
			AllowedOrigins:  []string{"*"},
			RateLimitPerSec: 5,
			RateLimitBurst:  10,
			MaxBodyBytes:    1 << 20, // 1MB
		},

		Storage: StorageConfig{
			DatabasePath: "", // resolved against the config dir at load time
		},

		Export: ExportConfig{
			OutputDir: ".",
			Theme:     "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the application configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aichat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only) to protect
// API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.aichat/config.toml if present, applies
// environment overrides, fills defaults, and validates.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from the given TOML file, falling back
// to defaults when the file does not exist. Environment overrides are
// applied last.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults replaces zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.DefaultProvider == "" {
		c.DefaultProvider = defaults.DefaultProvider
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = defaults.Server.RateLimitBurst
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if c.Storage.DatabasePath == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Storage.DatabasePath = filepath.Join(dir, "chat.db")
		}
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Export.Theme == "" {
		c.Export.Theme = defaults.Export.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write
// only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if the file already existed.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# aichat configuration file")
	fmt.Fprintln(file, "# Edit with care - API keys are secrets")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validProviders := map[string]bool{"gemini": true, "gpt": true, "claude": true}
	if !validProviders[c.DefaultProvider] {
		errs = append(errs, ValidationError{
			Field:   "default_provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: gemini, gpt, claude", c.DefaultProvider),
		})
	}

	if !strings.Contains(c.Server.Addr, ":") {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: fmt.Sprintf("invalid listen address '%s', expected host:port", c.Server.Addr),
		})
	}

	if c.Server.RateLimitPerSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_sec",
			Message: "rate limit cannot be negative",
		})
	}

	if c.Export.Theme != "dark" && c.Export.Theme != "light" {
		errs = append(errs, ValidationError{
			Field:   "export.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be 'dark' or 'light'", c.Export.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
