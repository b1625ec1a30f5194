// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates settings.
type Validator struct{}

// NewValidator creates a new settings validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks settings validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateAPI(cfg, errs)
	v.validateBackend(cfg, errs)
	v.validateDashboard(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateAPI(cfg *Config, errs *ValidationError) {
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		errs.Add("api.port", "must be between 0 and 65535")
	}
	if cfg.API.URL != "" {
		u, err := url.Parse(cfg.API.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("api.url", "must be an absolute http(s) URL")
		}
	}
}

func (v *Validator) validateBackend(cfg *Config, errs *ValidationError) {
	switch cfg.Backend.Mode {
	case "", ModeAuto, ModePackaged, ModeDev:
	default:
		errs.Add("backend.mode", fmt.Sprintf("must be one of auto, packaged, dev (got %q)", cfg.Backend.Mode))
	}
	if cfg.Backend.OutputLines < 0 {
		errs.Add("backend.output_lines", "must not be negative")
	}
}

func (v *Validator) validateDashboard(cfg *Config, errs *ValidationError) {
	if cfg.Dashboard.LogLimit < 0 {
		errs.Add("dashboard.log_limit", "must not be negative")
	}
	if cfg.Dashboard.EngineInterval < 0 {
		errs.Add("dashboard.engine_interval", "must not be negative")
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"api.probe_timeout", cfg.API.ProbeTimeout},
		{"backend.wait_timeout", cfg.Backend.WaitTimeout},
		{"backend.poll_interval", cfg.Backend.PollInterval},
		{"backend.stop_timeout", cfg.Backend.StopTimeout},
		{"dashboard.refresh_interval", cfg.Dashboard.RefreshInterval},
		{"events.history_max_age", cfg.Events.HistoryMaxAge},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed <= 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}
