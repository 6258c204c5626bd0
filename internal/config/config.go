// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// travelmind.
//
// Supports both JSON and TOML configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.travelmind/config.json
//   - ~/.travelmind/config.toml
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/jeranaias/travelmind-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config represents the complete travelmind configuration.
type Config struct {
	// APIKey is the Dify application API key (app-... token).
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL is the Dify API base URL, including the /v1 suffix.
	BaseURL string `toml:"base_url" json:"base_url"`
	// StreamEnabled selects streaming responses; when false, answers arrive
	// in a single blocking request.
	StreamEnabled bool `toml:"stream_enabled" json:"stream_enabled"`
	// TypingSpeed is the typewriter pacing in milliseconds per flushed chunk.
	// 0 disables pacing and renders deltas immediately.
	TypingSpeed int `toml:"typing_speed" json:"typing_speed"`
	// User is the end-user identifier sent with every API request.
	User string `toml:"user" json:"user"`
	// RequestTimeoutSecs bounds blocking (non-stream) requests in seconds.
	// 0 means no overall deadline; the connect timeout still applies.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// HistoryLimit caps how many sessions the store retains.
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
}

// fileConfig mirrors Config with pointer fields so a decode can distinguish
// "absent" from "explicit zero value". Without it, a config file that omits
// stream_enabled would silently turn streaming off.
type fileConfig struct {
	APIKey             *string `toml:"api_key" json:"api_key"`
	BaseURL            *string `toml:"base_url" json:"base_url"`
	StreamEnabled      *bool   `toml:"stream_enabled" json:"stream_enabled"`
	TypingSpeed        *int    `toml:"typing_speed" json:"typing_speed"`
	User               *string `toml:"user" json:"user"`
	RequestTimeoutSecs *int    `toml:"request_timeout_secs" json:"request_timeout_secs"`
	HistoryLimit       *int    `toml:"history_limit" json:"history_limit"`
	Theme              *string `toml:"theme" json:"theme"`
}

// apply overlays the file values onto cfg, leaving absent fields untouched.
func (f *fileConfig) apply(cfg *Config) {
	if f.APIKey != nil {
		cfg.APIKey = *f.APIKey
	}
	if f.BaseURL != nil {
		cfg.BaseURL = *f.BaseURL
	}
	if f.StreamEnabled != nil {
		cfg.StreamEnabled = *f.StreamEnabled
	}
	if f.TypingSpeed != nil {
		cfg.TypingSpeed = *f.TypingSpeed
	}
	if f.User != nil {
		cfg.User = *f.User
	}
	if f.RequestTimeoutSecs != nil {
		cfg.RequestTimeoutSecs = *f.RequestTimeoutSecs
	}
	if f.HistoryLimit != nil {
		cfg.HistoryLimit = *f.HistoryLimit
	}
	if f.Theme != nil {
		cfg.Theme = *f.Theme
	}
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		APIKey:             "",
		BaseURL:            "https://api.dify.ai/v1",
		StreamEnabled:      true,
		TypingSpeed:        30, // milliseconds per typewriter flush
		User:               "", // generated per install, see SetDefaults
		RequestTimeoutSecs: 0, // streaming responses have no natural deadline
		HistoryLimit:       50,
		Theme:              "dark",
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the travelmind configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".travelmind"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
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

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
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

// Load loads configuration from the config file(s).
// Tries JSON first, then TOML, and falls back to defaults. A corrupt or
// unreadable file never aborts startup: the defaults are returned together
// with the load error so callers can warn and continue.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// First run: persist the defaults so the generated user identity stays
	// stable across runs. The save happens before env overrides so that
	// TRAVELMIND_* values stay session-scoped and are never written into
	// the file. A corrupt existing file is left alone.
	cfg.SetDefaults()
	if loadErr == nil {
		if saveErr := Save(cfg); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not write initial config: %v\n", saveErr)
		}
	}
	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides and validation to a loaded config.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadJSON loads configuration from a JSON file onto cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Log warning but don't fail - permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fc.apply(cfg)
	return nil
}

// LoadTOML loads configuration from a TOML file onto cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fc.apply(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".toml") {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	} else {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default JSON file.
func Save(cfg *Config) error {
	path, err := ConfigPathJSON()
	if err != nil {
		return err
	}
	return SaveJSON(cfg, path)
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION AND DEFAULTS
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

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.BaseURL),
			})
		}
	}

	if c.TypingSpeed < 0 {
		errs = append(errs, ValidationError{
			Field:   "typing_speed",
			Message: "must be non-negative",
		})
	}

	if c.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "request_timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.HistoryLimit < 1 {
		errs = append(errs, ValidationError{
			Field:   "history_limit",
			Message: fmt.Sprintf("must be at least 1, got %d", c.HistoryLimit),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.User == "" {
		c.User = newInstallIdentity()
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = defaults.HistoryLimit
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// newInstallIdentity generates the end-user identifier the API correlates
// requests by. It becomes stable once the config is saved; until then each
// process gets a fresh one.
func newInstallIdentity() string {
	return "travelmind-" + uuid.NewString()[:8]
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - TRAVELMIND_API_KEY: overrides api_key
//   - TRAVELMIND_BASE_URL: overrides base_url
//   - TRAVELMIND_USER: overrides user
//   - TRAVELMIND_STREAM: set to "1"/"true" or "0"/"false" to override stream_enabled
//   - TRAVELMIND_TYPING_SPEED: overrides typing_speed (milliseconds)
//   - TRAVELMIND_TIMEOUT_SECS: overrides request_timeout_secs
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("TRAVELMIND_API_KEY"); key != "" {
		c.APIKey = key
	}
	if base := os.Getenv("TRAVELMIND_BASE_URL"); base != "" {
		c.BaseURL = base
	}
	if user := os.Getenv("TRAVELMIND_USER"); user != "" {
		c.User = user
	}
	if stream := os.Getenv("TRAVELMIND_STREAM"); stream != "" {
		c.StreamEnabled = stream == "1" || strings.ToLower(stream) == "true"
	}
	if speed := os.Getenv("TRAVELMIND_TYPING_SPEED"); speed != "" {
		if n, err := strconv.Atoi(speed); err == nil && n >= 0 {
			c.TypingSpeed = n
		}
	}
	if timeout := os.Getenv("TRAVELMIND_TIMEOUT_SECS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil && n >= 0 {
			c.RequestTimeoutSecs = n
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT-FREE FLAT KEYS)
// =============================================================================

// GetAllKeys returns all configuration keys.
func GetAllKeys() []string {
	return []string{
		"api_key",
		"base_url",
		"stream_enabled",
		"typing_speed",
		"user",
		"request_timeout_secs",
		"history_limit",
		"theme",
	}
}

// Get retrieves a configuration value by key.
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "api_key":
		return c.APIKey, nil
	case "base_url":
		return c.BaseURL, nil
	case "stream_enabled":
		return c.StreamEnabled, nil
	case "typing_speed":
		return c.TypingSpeed, nil
	case "user":
		return c.User, nil
	case "request_timeout_secs":
		return c.RequestTimeoutSecs, nil
	case "history_limit":
		return c.HistoryLimit, nil
	case "theme":
		return c.Theme, nil
	}
	return nil, fmt.Errorf("unknown field: %s", key)
}

// Set sets a configuration value from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_key":
		c.APIKey = value
	case "base_url":
		c.BaseURL = value
	case "user":
		c.User = value
	case "theme":
		c.Theme = value
	case "stream_enabled":
		c.StreamEnabled = value == "1" || strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
	case "typing_speed", "request_timeout_secs", "history_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value: %v", err)
		}
		switch key {
		case "typing_speed":
			c.TypingSpeed = n
		case "request_timeout_secs":
			c.RequestTimeoutSecs = n
		case "history_limit":
			c.HistoryLimit = n
		}
	default:
		return fmt.Errorf("unknown field: %s", key)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key to prevent accidental exposure in logs,
// error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.APIKey != "" {
		safe.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
