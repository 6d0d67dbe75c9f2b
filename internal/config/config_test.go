// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:8000/api/chat", cfg.Server.ChatURL())
	assert.Equal(t, 300*time.Second, cfg.Server.RequestTimeout())
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
[server]
api_url = "https://chat.example.com/"
chat_path = "v1/chat"
request_timeout_secs = 60

[auth]
token = "abc"
tenant = "acme"

[stream]
salvage_on_abort = true
busy_policy = "cancel"
think_open = "<reasoning>"
think_close = "</reasoning>"

[storage]
backend = "sqlite"
path = "/tmp/history.db"

[log]
level = "debug"
output = "stderr"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/v1/chat", cfg.Server.ChatURL())
	assert.Equal(t, time.Minute, cfg.Server.RequestTimeout())
	assert.Equal(t, "abc", cfg.Auth.Token)
	assert.Equal(t, "acme", cfg.Auth.Tenant)
	assert.True(t, cfg.Stream.SalvageOnAbort)
	assert.Equal(t, "cancel", cfg.Stream.BusyPolicy)
	assert.Equal(t, "<reasoning>", cfg.Stream.ThinkOpen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/history.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset fields fall back to defaults.
	assert.Equal(t, 4096, cfg.Stream.ReadBufferSize)
	assert.Equal(t, 1024*1024, cfg.Stream.MaxLineSize)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	path := writeConfig(t, "[server]\napi_urll = \"http://x\"\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.api_urll")
}

func TestLoadFromPath_BadTOML(t *testing.T) {
	path := writeConfig(t, "[server\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.APIURL, cfg.Server.APIURL)
	assert.Equal(t, "json", cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.NotEmpty(t, cfg.Log.File)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STREAMCHAT_API_URL", "https://env.example.com")
	t.Setenv("STREAMCHAT_TOKEN", "env-token")
	t.Setenv("STREAMCHAT_TENANT", "env-tenant")
	t.Setenv("STREAMCHAT_LOG_LEVEL", "warn")
	t.Setenv("STREAMCHAT_TIMEOUT", "15")

	path := writeConfig(t, "[auth]\ntoken = \"file-token\"\n")
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.APIURL)
	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, "env-tenant", cfg.Auth.Tenant)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 15, cfg.Server.RequestTimeoutSecs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "relative url", mutate: func(c *Config) { c.Server.APIURL = "localhost:8000" }, field: "server.api_url"},
		{name: "ftp url", mutate: func(c *Config) { c.Server.APIURL = "ftp://host" }, field: "server.api_url"},
		{name: "negative timeout", mutate: func(c *Config) { c.Server.RequestTimeoutSecs = -1 }, field: "server.request_timeout_secs"},
		{name: "tiny line limit", mutate: func(c *Config) { c.Stream.MaxLineSize = 10 }, field: "stream.max_line_size"},
		{name: "same markers", mutate: func(c *Config) { c.Stream.ThinkClose = c.Stream.ThinkOpen }, field: "stream.think_close"},
		{name: "busy policy", mutate: func(c *Config) { c.Stream.BusyPolicy = "queue" }, field: "stream.busy_policy"},
		{name: "backend", mutate: func(c *Config) { c.Storage.Backend = "postgres" }, field: "storage.backend"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, field: "log.level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, field: "log.format"},
		{name: "log output", mutate: func(c *Config) { c.Log.Output = "syslog" }, field: "log.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SetDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.SetDefaults()
	cfg.Auth.Token = "secret"
	cfg.Stream.BusyPolicy = "cancel"
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Auth.Token)
	assert.Equal(t, "cancel", loaded.Stream.BusyPolicy)
}
