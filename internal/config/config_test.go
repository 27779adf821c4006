// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range append(apiKeyEnvVars, "SIRSI_STORAGE", "SIRSI_DATA_DIR", "SIRSI_LOG_LEVEL") {
		t.Setenv(name, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "chatHistory", cfg.Storage.Key)
	assert.Equal(t, 60, cfg.Client.SendTimeoutSecs)
	assert.True(t, cfg.UI.Markdown)
}

func TestLoadFromPath_TOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
api_key = "file-key"

[storage]
backend = "SQLite"
dir = "/tmp/sirsi-data"

[client]
requests_per_minute = 12

[ui]
markdown = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("/tmp/sirsi-data", SQLiteFileName), cfg.StoragePath())
	assert.Equal(t, "chatHistory", cfg.Storage.Key, "unset values keep defaults")
	assert.Equal(t, 12, cfg.Client.RequestsPerMinute)
	assert.Equal(t, 60, cfg.Client.SendTimeoutSecs)
	assert.False(t, cfg.UI.Markdown)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions are tightened on load")
}

func TestLoadFromPath_JSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logging":{"level":"DEBUG"}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"redis\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "storage.backend", verrs[0].Field)
}

func TestLoadFromPath_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_key = "), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Key = " "
	cfg.Client.SendTimeoutSecs = 0
	cfg.Client.RequestsPerMinute = -1
	cfg.Client.BaseURL = "ftp://nowhere"
	cfg.Logging.Level = "loud"
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 6)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("API_KEY", "generic-key")
	t.Setenv("SIRSI_STORAGE", "memory")
	t.Setenv("SIRSI_DATA_DIR", "/data")
	t.Setenv("SIRSI_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "gemini-key", cfg.APIKey, "GEMINI_API_KEY wins over API_KEY")
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "/data", cfg.Storage.Dir)
	assert.Equal(t, "warn", cfg.Logging.Level)

	t.Setenv("SIRSI_API_KEY", "sirsi-key")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sirsi-key", cfg.APIKey)
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()

	_, err := cfg.RequireAPIKey()
	var initErr *InitializationError
	require.True(t, errors.As(err, &initErr))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.APIKey = " key "
	key, err := cfg.RequireAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "key", key)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Client.RequestsPerMinute = 5
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.Storage.Backend)
	assert.Equal(t, 5, loaded.Client.RequestsPerMinute)
}

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("storage.backend")
	require.NoError(t, err)
	assert.Equal(t, "file", v)

	v, err = cfg.Get("client.send_timeout_secs")
	require.NoError(t, err)
	assert.Equal(t, 60, v)

	_, err = cfg.Get("storage.nope")
	assert.Error(t, err)
	_, err = cfg.Get("api_key.deeper")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "super-secret"

	out := cfg.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "super-secret", cfg.APIKey, "original untouched")
}
