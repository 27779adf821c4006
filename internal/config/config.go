// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sirsi.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.sirsi/config.toml
//   - ~/.sirsi/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/sirsi/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sirsi configuration.
type Config struct {
	// APIKey is the Gemini API key. Prefer the SIRSI_API_KEY environment
	// variable over storing it here.
	APIKey string `toml:"api_key" json:"api_key"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Remote client configuration
	Client ClientConfig `toml:"client" json:"client"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// StorageConfig selects where the conversation is persisted.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// Dir holds the history file or the sirsi.db database
	Dir string `toml:"dir" json:"dir"`
	// Key is the entry the conversation is stored under
	Key string `toml:"key" json:"key"`
}

// ClientConfig tunes the remote chat client.
type ClientConfig struct {
	// SendTimeoutSecs bounds a single send
	SendTimeoutSecs int `toml:"send_timeout_secs" json:"send_timeout_secs"`
	// RequestsPerMinute throttles sends client-side (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// BaseURL overrides the Gemini endpoint, for proxies
	BaseURL string `toml:"base_url" json:"base_url,omitempty"`
}

// LoggingConfig controls the log file. The terminal belongs to the UI, so
// logs never go to stdout.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error"
	Level string `toml:"level" json:"level"`
	// File is the log file path; "off" disables logging
	File string `toml:"file" json:"file"`
	// JSON selects the JSON encoder instead of the console one
	JSON bool `toml:"json" json:"json"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders bot replies as Markdown
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default values.
const (
	DefaultBackend           = "file"
	DefaultKey               = "chatHistory"
	DefaultSendTimeoutSecs   = 60
	DefaultRequestsPerMinute = 0
	DefaultLogLevel          = "info"
	DefaultTheme             = "auto"

	// SQLiteFileName is the database file used by the sqlite backend.
	SQLiteFileName = "sirsi.db"
)

// Default returns the default configuration.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".sirsi"
	}

	return &Config{
		Storage: StorageConfig{
			Backend: DefaultBackend,
			Dir:     dir,
			Key:     DefaultKey,
		},
		Client: ClientConfig{
			SendTimeoutSecs:   DefaultSendTimeoutSecs,
			RequestsPerMinute: DefaultRequestsPerMinute,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			File:  filepath.Join(dir, "sirsi.log"),
		},
		UI: UIConfig{
			Theme:    DefaultTheme,
			Markdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the sirsi configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sirsi"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files may hold the API key, so they are kept at 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
// Values missing from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

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

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# sirsi configuration file\n")
	buf.WriteString("# Generated by sirsi - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# The API key is better kept in SIRSI_API_KEY than here.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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
// A missing API key is not a validation error; see RequireAPIKey.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validBackends := map[string]bool{"file": true, "sqlite": true, "memory": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.key",
			Message: "must not be empty",
		})
	}

	if c.Client.SendTimeoutSecs < 1 || c.Client.SendTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "client.send_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Client.SendTimeoutSecs),
		})
	}
	if c.Client.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "client.requests_per_minute",
			Message: fmt.Sprintf("must not be negative, got %d", c.Client.RequestsPerMinute),
		})
	}
	if c.Client.BaseURL != "" {
		u, err := url.Parse(c.Client.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "client.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Client.BaseURL),
			})
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults and normalizes case.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.Dir == "" {
		c.Storage.Dir = defaults.Storage.Dir
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaults.Storage.Key
	}

	if c.Client.SendTimeoutSecs == 0 {
		c.Client.SendTimeoutSecs = defaults.Client.SendTimeoutSecs
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.File == "" {
		c.Logging.File = defaults.Logging.File
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
}

// StoragePath returns the path handed to the storage backend: the
// directory for "file", the database file for "sqlite".
func (c *Config) StoragePath() string {
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(c.Storage.Dir, SQLiteFileName)
	}
	return c.Storage.Dir
}

// =============================================================================
// API KEY
// =============================================================================

// ErrMissingAPIKey is wrapped by the InitializationError RequireAPIKey returns.
var ErrMissingAPIKey = errors.New("no API key found: set SIRSI_API_KEY (or GEMINI_API_KEY) or api_key in the config file")

// InitializationError is a fatal startup problem. The CLI exits with
// status 1 when it sees one.
type InitializationError struct {
	Err error
}

// Error implements the error interface.
func (e *InitializationError) Error() string {
	return "initialization failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InitializationError) Unwrap() error {
	return e.Err
}

// RequireAPIKey returns the API key or an *InitializationError.
func (c *Config) RequireAPIKey() (string, error) {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return "", &InitializationError{Err: ErrMissingAPIKey}
	}
	return key, nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// apiKeyEnvVars are checked in order; the first non-empty one wins.
var apiKeyEnvVars = []string{"SIRSI_API_KEY", "GEMINI_API_KEY", "API_KEY"}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SIRSI_API_KEY, GEMINI_API_KEY, API_KEY: override api_key (first set wins)
//   - SIRSI_STORAGE: overrides storage.backend
//   - SIRSI_DATA_DIR: overrides storage.dir
//   - SIRSI_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	for _, name := range apiKeyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.APIKey = key
			break
		}
	}

	if backend := os.Getenv("SIRSI_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}

	if dir := os.Getenv("SIRSI_DATA_DIR"); dir != "" {
		c.Storage.Dir = dir
	}

	if level := os.Getenv("SIRSI_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "storage.backend").
// Keys match the TOML names.
func (c *Config) Get(key string) (interface{}, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// =============================================================================
// UTILITY
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as TOML with the API key redacted, so it is
// safe to print or log.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.APIKey != "" {
		safe.APIKey = "[REDACTED]"
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
