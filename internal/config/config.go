// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the majordomo
// assistant. It handles loading and parsing the YAML configuration file and
// provides structured access to the NLU, permission, learning, directive,
// and plugin settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/traylinx/majordomo/internal/directives"
	"github.com/traylinx/majordomo/internal/nlu"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the interface the local HTTP API binds to. Defaults to
	// 127.0.0.1; the API is meant for same-machine clients only.
	Host string `yaml:"host"`
	// Port is the HTTP API port. 0 disables the API.
	Port int `yaml:"port"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile controls whether logs go to rotating files or stderr.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsDir is the directory for rotated log files.
	LogsDir string `yaml:"logs-dir"`

	NLU         NLUConfig         `yaml:"nlu"`
	Context     ContextConfig     `yaml:"context"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Learning    LearningConfig    `yaml:"learning"`
	Plugins     PluginsConfig     `yaml:"plugins"`

	// Directives are admin-authored steering rules evaluated before
	// dispatch.
	Directives []directives.Directive `yaml:"directives"`

	// Rules are extra NLU pattern rules registered after the built-in
	// skill patterns.
	Rules []RuleConfig `yaml:"rules"`

	path string
}

// NLUConfig tunes the intent parser.
type NLUConfig struct {
	// MaxSuggestions caps "did you mean" suggestions on a failed parse.
	MaxSuggestions int `yaml:"max-suggestions"`
}

// ContextConfig tunes the conversation context tracker.
type ContextConfig struct {
	// Capacity is the number of entries retained; older entries are
	// evicted.
	Capacity int `yaml:"capacity"`
}

// PermissionsConfig declares the role requirements per intent.
type PermissionsConfig struct {
	// FailClosed makes unlisted intents require the admin role instead of
	// the standard role.
	FailClosed bool `yaml:"fail-closed"`

	// Intents maps intent name to the minimum role name required.
	Intents map[string]string `yaml:"intents"`
}

// LearningConfig tunes the correction and alias engine.
type LearningConfig struct {
	// Enabled toggles miss recording and learned dispatch.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database file for learned data.
	DBPath string `yaml:"db-path"`

	// AliasThreshold is the number of identical corrections required
	// before an alias rule is generated.
	AliasThreshold int `yaml:"alias-threshold"`
}

// PluginsConfig controls the Lua skill loader.
type PluginsConfig struct {
	// Enabled toggles loading of Lua skills at startup.
	Enabled bool `yaml:"enabled"`

	// Dir is scanned for *.lua skill scripts.
	Dir string `yaml:"dir"`
}

// RuleConfig is a user-defined NLU rule in the config file.
type RuleConfig struct {
	Pattern    string  `yaml:"pattern"`
	Intent     string  `yaml:"intent"`
	Confidence float64 `yaml:"confidence"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          7315,
		LoggingToFile: false,
		LogsDir:       "logs",
		NLU:           NLUConfig{MaxSuggestions: 3},
		Context:       ContextConfig{Capacity: nlu.DefaultMaxHistory},
		Learning: LearningConfig{
			Enabled:        true,
			DBPath:         filepath.Join("data", "learning.db"),
			AliasThreshold: 2,
		},
		Plugins: PluginsConfig{Dir: "plugins"},
	}
}

// LoadConfig reads and parses the configuration from the given path.
// A missing file yields the defaults rather than an error so a fresh
// install runs without any setup.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.NLU.MaxSuggestions <= 0 {
		c.NLU.MaxSuggestions = 3
	}
	if c.Context.Capacity <= 0 {
		c.Context.Capacity = nlu.DefaultMaxHistory
	}
	if c.Learning.DBPath == "" {
		c.Learning.DBPath = filepath.Join("data", "learning.db")
	}
	if c.Learning.AliasThreshold <= 0 {
		c.Learning.AliasThreshold = 2
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	if c.Plugins.Dir == "" {
		c.Plugins.Dir = "plugins"
	}
}
