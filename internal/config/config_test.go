// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/majordomo/internal/directives"
	"github.com/traylinx/majordomo/internal/nlu"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 7315, cfg.Port)
	assert.Equal(t, 3, cfg.NLU.MaxSuggestions)
	assert.Equal(t, nlu.DefaultMaxHistory, cfg.Context.Capacity)
	assert.True(t, cfg.Learning.Enabled)
	assert.Equal(t, 2, cfg.Learning.AliasThreshold)
	assert.False(t, cfg.Permissions.FailClosed)
}

func TestLoadConfig_ParsesFullFile(t *testing.T) {
	content := `
host: "0.0.0.0"
port: 9000
debug: true
logging-to-file: true
nlu:
  max-suggestions: 5
context:
  capacity: 25
permissions:
  fail-closed: true
  intents:
    shutdown_computer: admin
learning:
  enabled: true
  db-path: /tmp/test-learning.db
  alias-threshold: 3
plugins:
  enabled: true
  dir: my-plugins
directives:
  - name: night-guard
    condition: 'Intent == "shutdown_computer" && Hour >= 22'
    priority: 10
    action: block
rules:
  - pattern: '^good night$'
    intent: sleep_computer
    confidence: 0.9
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.LoggingToFile)
	assert.Equal(t, 5, cfg.NLU.MaxSuggestions)
	assert.Equal(t, 25, cfg.Context.Capacity)
	assert.True(t, cfg.Permissions.FailClosed)
	assert.Equal(t, "admin", cfg.Permissions.Intents["shutdown_computer"])
	assert.Equal(t, "/tmp/test-learning.db", cfg.Learning.DBPath)
	assert.Equal(t, 3, cfg.Learning.AliasThreshold)
	assert.True(t, cfg.Plugins.Enabled)
	assert.Equal(t, "my-plugins", cfg.Plugins.Dir)

	require.Len(t, cfg.Directives, 1)
	assert.Equal(t, directives.ActionBlock, cfg.Directives[0].Action)
	assert.Equal(t, 10, cfg.Directives[0].Priority)

	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "sleep_computer", cfg.Rules[0].Intent)
	assert.Equal(t, 0.9, cfg.Rules[0].Confidence)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8500\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8500, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3, cfg.NLU.MaxSuggestions)
	assert.Equal(t, nlu.DefaultMaxHistory, cfg.Context.Capacity,
		"the context default must match the tracker's own default")
}
