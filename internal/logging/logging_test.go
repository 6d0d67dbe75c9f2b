// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/config"
)

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "streamchat.log")
	l, err := New(config.LogConfig{
		Level:     "info",
		Format:    "json",
		Output:    "file",
		File:      path,
		MaxSizeMB: 1,
	})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("dropping malformed stream event", zap.String("event", "content"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"dropping malformed stream event"`)
	assert.Contains(t, string(data), `"event":"content"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_Stderr(t *testing.T) {
	var buf bytes.Buffer
	l, err := newWithStderr(config.LogConfig{Level: "debug", Format: "console", Output: "stderr"}, &buf)
	require.NoError(t, err)

	l.Debug("turn started", zap.String("conversation_id", "c1"))
	require.NoError(t, l.Close())
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "turn started")
}

func TestNew_Both(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "both.log")
	l, err := newWithStderr(config.LogConfig{Level: "warn", Format: "console", Output: "both", File: path}, &buf)
	require.NoError(t, err)

	l.Warn("token reload failed")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "token reload failed")
	assert.Contains(t, buf.String(), "token reload failed")
}

func TestNew_None(t *testing.T) {
	l, err := New(config.LogConfig{Output: "none"})
	require.NoError(t, err)
	l.Error("discarded")
	require.NoError(t, l.Close())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Output: "stderr"})
	require.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Output: "file"})
	require.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Output: "syslog"})
	require.Error(t, err)
}
