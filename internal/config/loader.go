// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvAPIURL     = "WINNERTRADE_API_URL"
	EnvMode       = "WINNERTRADE_MODE"
	EnvBackendDir = "WINNERTRADE_BACKEND_DIR"
	EnvBackendExe = "WINNERTRADE_BACKEND_EXE"
	EnvPython     = "WINNERTRADE_PYTHON"
)

// FileName is the settings file looked up by FindConfig.
const FileName = "winnertrade.hjson"

// Loader handles settings file loading.
type Loader struct {
	// Getenv reads environment overrides. Defaults to os.Getenv.
	Getenv func(string) string
}

// NewLoader creates a new settings loader.
func NewLoader() *Loader {
	return &Loader{Getenv: os.Getenv}
}

// Load reads and parses the settings file at path.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return l.Parse(data)
}

// Parse parses HJSON settings.
func (l *Loader) Parse(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads the settings file (optional: an empty path means
// defaults only), then applies .env, environment overrides and defaults,
// and validates the result.
func (l *Loader) LoadWithDefaults(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := l.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	l.applyEnv(cfg)
	applyDefaults(cfg)

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig searches for the settings file in the current directory and
// then the user config directory. It returns "" when there is none.
func (l *Loader) FindConfig() string {
	candidates := []string{filepath.Join(".", FileName)}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "winnertrade", FileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

func (l *Loader) applyEnv(cfg *Config) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := getenv(EnvMode); v != "" {
		cfg.Backend.Mode = strings.ToLower(v)
	}
	if v := getenv(EnvBackendDir); v != "" {
		cfg.Backend.Dir = v
	}
	if v := getenv(EnvBackendExe); v != "" {
		cfg.Backend.Executable = v
	}
	if v := getenv(EnvPython); v != "" {
		cfg.Backend.Python = v
	}
}

// Default returns settings with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing settings.
func applyDefaults(cfg *Config) {
	// API defaults. An explicit URL decides the port the backend is
	// launched on.
	if cfg.API.URL != "" {
		if port := urlPort(cfg.API.URL); port != 0 {
			cfg.API.Port = port
		}
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = DefaultPort
	}
	if cfg.API.URL == "" {
		cfg.API.URL = fmt.Sprintf("http://127.0.0.1:%d", cfg.API.Port)
	}
	cfg.API.URL = strings.TrimSuffix(cfg.API.URL, "/")
	if cfg.API.ProbeTimeout == "" {
		cfg.API.ProbeTimeout = "2s"
	}

	// Backend defaults
	if cfg.Backend.Mode == "" {
		cfg.Backend.Mode = ModeAuto
	}
	if cfg.Backend.Dir == "" {
		cfg.Backend.Dir = "backend"
	}
	if cfg.Backend.Executable == "" {
		cfg.Backend.Executable = DefaultExecutable()
	}
	if cfg.Backend.Python == "" {
		cfg.Backend.Python = DefaultPython()
	}
	if cfg.Backend.Module == "" {
		cfg.Backend.Module = "api.main:app"
	}
	if cfg.Backend.WaitTimeout == "" {
		cfg.Backend.WaitTimeout = "30s"
	}
	if cfg.Backend.PollInterval == "" {
		cfg.Backend.PollInterval = "500ms"
	}
	if cfg.Backend.StopTimeout == "" {
		cfg.Backend.StopTimeout = "5s"
	}
	if cfg.Backend.OutputLines == 0 {
		cfg.Backend.OutputLines = 500
	}

	// Dashboard defaults
	if cfg.Dashboard.RefreshInterval == "" {
		cfg.Dashboard.RefreshInterval = "1s"
	}
	if cfg.Dashboard.DefaultSymbol == "" {
		cfg.Dashboard.DefaultSymbol = "BTC/USDT"
	}
	if cfg.Dashboard.LogLimit == 0 {
		cfg.Dashboard.LogLimit = 100
	}
	if cfg.Dashboard.EngineInterval == 0 {
		cfg.Dashboard.EngineInterval = 60
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	// Events defaults
	if cfg.Events.HistoryMaxEvents == 0 {
		cfg.Events.HistoryMaxEvents = 1000
	}
	if cfg.Events.HistoryMaxAge == "" {
		cfg.Events.HistoryMaxAge = "1h"
	}
}

// urlPort returns the port of rawURL, falling back to the scheme's default.
// It returns 0 when the URL cannot be parsed.
func urlPort(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		return port
	}
	switch u.Scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}
