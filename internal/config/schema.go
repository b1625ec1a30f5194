// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the shell settings file.
//
// Settings describe how the shell reaches and launches the backend, not the
// backend's own trading configuration, which is owned by the backend and
// edited through the gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Backend launch modes.
const (
	ModeAuto     = "auto"
	ModePackaged = "packaged"
	ModeDev      = "dev"
)

// DefaultPort is the port the backend listens on.
const DefaultPort = 8000

// Config is the root settings structure.
type Config struct {
	API       APIConfig       `json:"api"`
	Backend   BackendConfig   `json:"backend"`
	Dashboard DashboardConfig `json:"dashboard"`
	Logging   LoggingConfig   `json:"logging"`
	Events    EventsConfig    `json:"events"`
	Host      HostConfig      `json:"host"`
}

// APIConfig locates the backend HTTP API.
type APIConfig struct {
	URL          string `json:"url"`
	Port         int    `json:"port"`
	ProbeTimeout string `json:"probe_timeout"`
}

// BackendConfig controls how the backend process is launched.
type BackendConfig struct {
	Mode         string `json:"mode"`
	Dir          string `json:"dir"`
	Executable   string `json:"executable"`
	Python       string `json:"python"`
	Module       string `json:"module"`
	WaitTimeout  string `json:"wait_timeout"`
	PollInterval string `json:"poll_interval"`
	StopTimeout  string `json:"stop_timeout"`
	OutputLines  int    `json:"output_lines"`
}

// DashboardConfig controls the polling loop.
type DashboardConfig struct {
	RefreshInterval string `json:"refresh_interval"`
	DefaultSymbol   string `json:"default_symbol"`
	LogLimit        int    `json:"log_limit"`
	EngineInterval  int    `json:"engine_interval"`
}

// LoggingConfig controls shell logging.
type LoggingConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// EventsConfig controls the in-memory event history.
type EventsConfig struct {
	HistoryMaxEvents int    `json:"history_max_events"`
	HistoryMaxAge    string `json:"history_max_age"`
}

// HostConfig controls host lifecycle behavior.
type HostConfig struct {
	// KeepResident keeps the application running after its last window is
	// closed. Nil means the platform convention (resident on macOS).
	KeepResident *bool `json:"keep_resident"`
}

// HealthURL returns the liveness endpoint URL.
func (c *APIConfig) HealthURL() string {
	return c.URL + "/health"
}

// GetProbeTimeout returns the health probe timeout.
func (c *APIConfig) GetProbeTimeout() time.Duration {
	return parseDuration(c.ProbeTimeout, 2*time.Second)
}

// GetWaitTimeout returns the readiness wait bound.
func (c *BackendConfig) GetWaitTimeout() time.Duration {
	return parseDuration(c.WaitTimeout, 30*time.Second)
}

// GetPollInterval returns the readiness poll interval.
func (c *BackendConfig) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, 500*time.Millisecond)
}

// GetStopTimeout returns the grace period between terminate and kill.
func (c *BackendConfig) GetStopTimeout() time.Duration {
	return parseDuration(c.StopTimeout, 5*time.Second)
}

// ResolveMode returns the effective launch mode. Auto picks packaged when
// the packaged executable exists.
func (c *BackendConfig) ResolveMode() string {
	if c.Mode != ModeAuto && c.Mode != "" {
		return c.Mode
	}
	if info, err := os.Stat(c.Executable); err == nil && !info.IsDir() {
		return ModePackaged
	}
	return ModeDev
}

// GetRefreshInterval returns the dashboard refresh interval.
func (c *DashboardConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, time.Second)
}

// GetHistoryMaxAge returns the event history retention.
func (c *EventsConfig) GetHistoryMaxAge() time.Duration {
	return parseDuration(c.HistoryMaxAge, time.Hour)
}

// Resident reports whether the app should outlive its last window.
func (c *HostConfig) Resident() bool {
	if c.KeepResident != nil {
		return *c.KeepResident
	}
	return runtime.GOOS == "darwin"
}

// DefaultExecutable returns the packaged backend location next to the
// running binary.
func DefaultExecutable() string {
	name := "winnertrade-backend"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	self, err := os.Executable()
	if err != nil {
		return filepath.Join("backend", name)
	}
	return filepath.Join(filepath.Dir(self), "backend", name)
}

// DefaultPython returns the interpreter name used in dev mode.
func DefaultPython() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// String renders a short human summary, used in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("api=%s mode=%s refresh=%s", c.API.URL, c.Backend.Mode, c.Dashboard.GetRefreshInterval())
}
