// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete streamchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Stream  StreamConfig  `toml:"stream" json:"stream"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	// APIURL is the base URL of the backend, e.g. "http://127.0.0.1:8000"
	APIURL string `toml:"api_url" json:"api_url"`
	// ChatPath is appended to APIURL for the streaming chat endpoint
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// RequestTimeoutSecs bounds a whole turn; 0 disables the limit
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
}

// AuthConfig holds credentials sent with each request.
type AuthConfig struct {
	// Token is a static bearer token
	Token string `toml:"token" json:"token"`
	// TokenFile, when set, is read and watched for rotated tokens; it wins
	// over Token
	TokenFile string `toml:"token_file" json:"token_file"`
	// Tenant is sent as X-Tenant-Context when non-empty
	Tenant string `toml:"tenant" json:"tenant"`
}

// StreamConfig tunes stream decoding and turn handling.
type StreamConfig struct {
	ReadBufferSize int    `toml:"read_buffer_size" json:"read_buffer_size"`
	MaxLineSize    int    `toml:"max_line_size" json:"max_line_size"`
	ThinkOpen      string `toml:"think_open" json:"think_open"`
	ThinkClose     string `toml:"think_close" json:"think_close"`
	// SalvageOnAbort keeps partial content when a turn is cancelled
	SalvageOnAbort bool `toml:"salvage_on_abort" json:"salvage_on_abort"`
	// BusyPolicy is "reject" or "cancel"
	BusyPolicy string `toml:"busy_policy" json:"busy_policy"`
}

// StorageConfig selects where conversation history is persisted.
type StorageConfig struct {
	// Backend is "json", "sqlite" or "none"
	Backend string `toml:"backend" json:"backend"`
	// Path is a directory for json, a database file for sqlite
	Path string `toml:"path" json:"path"`
}

// LogConfig configures diagnostics output.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	Format     string `toml:"format" json:"format"`
	Output     string `toml:"output" json:"output"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

// RequestTimeout returns the configured timeout as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSecs) * time.Second
}

// ChatURL joins the base URL and chat path.
func (s ServerConfig) ChatURL() string {
	return strings.TrimRight(s.APIURL, "/") + "/" + strings.TrimLeft(s.ChatPath, "/")
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			APIURL:             "http://127.0.0.1:8000",
			ChatPath:           "/api/chat",
			RequestTimeoutSecs: 300,
		},
		Stream: StreamConfig{
			ReadBufferSize: 4 * 1024,
			MaxLineSize:    1024 * 1024,
			ThinkOpen:      "<think>",
			ThinkClose:     "</think>",
			SalvageOnAbort: false,
			BusyPolicy:     "reject",
		},
		Storage: StorageConfig{
			Backend: "json",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "file",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// SetDefaults fills any missing or zero-value fields from Default.
// Storage and log paths default to locations under ConfigDir.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.APIURL == "" {
		c.Server.APIURL = d.Server.APIURL
	}
	if c.Server.ChatPath == "" {
		c.Server.ChatPath = d.Server.ChatPath
	}

	if c.Stream.ReadBufferSize == 0 {
		c.Stream.ReadBufferSize = d.Stream.ReadBufferSize
	}
	if c.Stream.MaxLineSize == 0 {
		c.Stream.MaxLineSize = d.Stream.MaxLineSize
	}
	if c.Stream.ThinkOpen == "" {
		c.Stream.ThinkOpen = d.Stream.ThinkOpen
	}
	if c.Stream.ThinkClose == "" {
		c.Stream.ThinkClose = d.Stream.ThinkClose
	}
	if c.Stream.BusyPolicy == "" {
		c.Stream.BusyPolicy = d.Stream.BusyPolicy
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Path == "" {
		if dir, err := ConfigDir(); err == nil {
			switch strings.ToLower(c.Storage.Backend) {
			case "sqlite":
				c.Storage.Path = filepath.Join(dir, "history.db")
			case "json":
				c.Storage.Path = filepath.Join(dir, "conversations")
			}
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = d.Log.Output
	}
	if c.Log.File == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Log.File = filepath.Join(dir, "streamchat.log")
		}
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = d.Log.MaxAgeDays
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the streamchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".streamchat"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file if it exists, then applies environment
// overrides, defaults and validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# streamchat configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Config may carry a bearer token.
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - STREAMCHAT_API_URL: overrides server.api_url
//   - STREAMCHAT_TOKEN: overrides auth.token
//   - STREAMCHAT_TENANT: overrides auth.tenant
//   - STREAMCHAT_LOG_LEVEL: overrides log.level
//   - STREAMCHAT_TIMEOUT: overrides server.request_timeout_secs
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STREAMCHAT_API_URL"); v != "" {
		c.Server.APIURL = v
	}
	if v := os.Getenv("STREAMCHAT_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("STREAMCHAT_TENANT"); v != "" {
		c.Auth.Tenant = v
	}
	if v := os.Getenv("STREAMCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STREAMCHAT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Server.RequestTimeoutSecs = secs
		}
	}
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

	// ==========================================================================
	// Server
	// ==========================================================================

	if u, err := url.Parse(c.Server.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.api_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Server.APIURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "server.api_url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}
	if c.Server.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: "must be non-negative",
		})
	}

	// ==========================================================================
	// Stream
	// ==========================================================================

	if c.Stream.ReadBufferSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "stream.read_buffer_size",
			Message: fmt.Sprintf("must be positive, got %d", c.Stream.ReadBufferSize),
		})
	}
	if c.Stream.MaxLineSize < 64 {
		errs = append(errs, ValidationError{
			Field:   "stream.max_line_size",
			Message: fmt.Sprintf("must be at least 64 bytes, got %d", c.Stream.MaxLineSize),
		})
	}
	if c.Stream.ThinkOpen == c.Stream.ThinkClose {
		errs = append(errs, ValidationError{
			Field:   "stream.think_close",
			Message: "must differ from think_open",
		})
	}
	validPolicies := map[string]bool{"reject": true, "cancel": true}
	if !validPolicies[strings.ToLower(c.Stream.BusyPolicy)] {
		errs = append(errs, ValidationError{
			Field:   "stream.busy_policy",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: reject, cancel", c.Stream.BusyPolicy),
		})
	}

	// ==========================================================================
	// Storage
	// ==========================================================================

	validBackends := map[string]bool{"json": true, "sqlite": true, "none": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: json, sqlite, none", c.Storage.Backend),
		})
	}

	// ==========================================================================
	// Log
	// ==========================================================================

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}
	validOutputs := map[string]bool{"stderr": true, "file": true, "both": true, "none": true}
	if !validOutputs[strings.ToLower(c.Log.Output)] {
		errs = append(errs, ValidationError{
			Field:   "log.output",
			Message: fmt.Sprintf("invalid output '%s', must be one of: stderr, file, both, none", c.Log.Output),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
