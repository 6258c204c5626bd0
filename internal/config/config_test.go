// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.StreamEnabled {
		t.Error("expected streaming enabled by default")
	}
	if cfg.TypingSpeed != 30 {
		t.Errorf("expected typing_speed 30, got %d", cfg.TypingSpeed)
	}
	if cfg.BaseURL == "" {
		t.Error("expected non-empty default base_url")
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected history_limit 50, got %d", cfg.HistoryLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadJSONAbsentFieldsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	// stream_enabled omitted: must stay true, not collapse to the zero value.
	content := `{"api_key": "app-test123", "typing_speed": 10}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := Default()
	if err := LoadJSON(cfg, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}

	if cfg.APIKey != "app-test123" {
		t.Errorf("api_key = %q", cfg.APIKey)
	}
	if cfg.TypingSpeed != 10 {
		t.Errorf("typing_speed = %d", cfg.TypingSpeed)
	}
	if !cfg.StreamEnabled {
		t.Error("absent stream_enabled should keep the default (true)")
	}
}

func TestLoadJSONExplicitFalseHonored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{"stream_enabled": false, "typing_speed": 0}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := Default()
	if err := LoadJSON(cfg, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}

	if cfg.StreamEnabled {
		t.Error("explicit stream_enabled=false was ignored")
	}
	if cfg.TypingSpeed != 0 {
		t.Errorf("explicit typing_speed=0 was ignored, got %d", cfg.TypingSpeed)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := "api_key = \"app-toml\"\nbase_url = \"http://localhost/v1\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	if cfg.APIKey != "app-toml" {
		t.Errorf("api_key = %q", cfg.APIKey)
	}
	if cfg.BaseURL != "http://localhost/v1" {
		t.Errorf("base_url = %q", cfg.BaseURL)
	}
}

func TestLoadFromPathCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for corrupt JSON")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	// Point HOME at an empty directory: no config files exist.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no config files should succeed: %v", err)
	}
	if cfg.BaseURL != Default().BaseURL {
		t.Errorf("expected default base_url, got %q", cfg.BaseURL)
	}
}

func TestLoadCorruptFileReturnsDefaultsAndError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".travelmind")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("garbage"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load()
	if err == nil {
		t.Error("expected a load error for corrupt config")
	}
	if cfg == nil {
		t.Fatal("expected usable defaults despite load error")
	}
	if !cfg.StreamEnabled {
		t.Error("defaults should have streaming enabled")
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.APIKey = "app-roundtrip"
	cfg.StreamEnabled = false
	cfg.TypingSpeed = 15

	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded := Default()
	if err := LoadJSON(loaded, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if loaded.APIKey != "app-roundtrip" || loaded.StreamEnabled || loaded.TypingSpeed != 15 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TRAVELMIND_API_KEY", "app-env")
	t.Setenv("TRAVELMIND_BASE_URL", "http://env.example/v1")
	t.Setenv("TRAVELMIND_STREAM", "false")
	t.Setenv("TRAVELMIND_TYPING_SPEED", "5")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.APIKey != "app-env" {
		t.Errorf("api_key = %q", cfg.APIKey)
	}
	if cfg.BaseURL != "http://env.example/v1" {
		t.Errorf("base_url = %q", cfg.BaseURL)
	}
	if cfg.StreamEnabled {
		t.Error("TRAVELMIND_STREAM=false should disable streaming")
	}
	if cfg.TypingSpeed != 5 {
		t.Errorf("typing_speed = %d", cfg.TypingSpeed)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad url", func(c *Config) { c.BaseURL = "://nope" }, true},
		{"negative typing speed", func(c *Config) { c.TypingSpeed = -1 }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeoutSecs = -5 }, true},
		{"zero history limit", func(c *Config) { c.HistoryLimit = 0 }, true},
		{"bad theme", func(c *Config) { c.Theme = "neon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("typing_speed", "12"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := cfg.Get("typing_speed")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(int) != 12 {
		t.Errorf("typing_speed = %v", v)
	}

	if err := cfg.Set("stream_enabled", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.StreamEnabled {
		t.Error("Set stream_enabled false did not apply")
	}

	if err := cfg.Set("nonexistent", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := cfg.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("typing_speed", "fast"); err == nil {
		t.Error("expected error for non-integer value")
	}
}

func TestStringRedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "app-supersecret"

	s := cfg.String()
	if strings.Contains(s, "app-supersecret") {
		t.Error("String() leaked the API key")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark the key as redacted")
	}
	// Redaction must not mutate the original.
	if cfg.APIKey != "app-supersecret" {
		t.Error("String() mutated the config")
	}
}

func TestSetDefaultsGeneratesUserIdentity(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if !strings.HasPrefix(cfg.User, "travelmind-") {
		t.Errorf("generated user = %q, want travelmind- prefix", cfg.User)
	}

	// An explicit user is never overwritten.
	cfg2 := &Config{User: "alice"}
	cfg2.SetDefaults()
	if cfg2.User != "alice" {
		t.Errorf("explicit user overwritten: %q", cfg2.User)
	}
}

func TestFirstRunPersistsConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	path, err := ConfigPathJSON()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("first run must write a config file: %v", err)
	}

	// The generated identity survives a second load.
	second, err := Load()
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if second.User != first.User {
		t.Errorf("user identity changed between runs: %q vs %q", first.User, second.User)
	}
}

func TestFirstRunSaveExcludesEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRAVELMIND_API_KEY", "env-secret")
	t.Setenv("TRAVELMIND_USER", "env-user")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Env values win for this process...
	if cfg.APIKey != "env-secret" {
		t.Errorf("APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.User != "env-user" {
		t.Errorf("User = %q, want env override", cfg.User)
	}

	// ...but never end up written into the config file.
	path, err := ConfigPathJSON()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("first run must write a config file: %v", err)
	}
	if strings.Contains(string(data), "env-secret") {
		t.Error("env api key persisted to disk")
	}
	if strings.Contains(string(data), "env-user") {
		t.Error("env user persisted to disk")
	}
	if !strings.Contains(string(data), "travelmind-") {
		t.Error("saved file missing generated user identity")
	}
}
