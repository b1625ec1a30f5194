// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Defaults(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(Default()))
}

func TestValidator_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"relative url", func(c *Config) { c.API.URL = "localhost:8000" }, "api.url"},
		{"bad mode", func(c *Config) { c.Backend.Mode = "docker" }, "backend.mode"},
		{"negative output", func(c *Config) { c.Backend.OutputLines = -1 }, "backend.output_lines"},
		{"negative log limit", func(c *Config) { c.Dashboard.LogLimit = -5 }, "dashboard.log_limit"},
		{"bad duration", func(c *Config) { c.Dashboard.RefreshInterval = "fast" }, "dashboard.refresh_interval"},
		{"zero duration", func(c *Config) { c.Backend.StopTimeout = "0s" }, "backend.stop_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := NewValidator().Validate(cfg)
			require.Error(t, err)

			verr, ok := err.(*ValidationError)
			require.True(t, ok)
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
			assert.Contains(t, err.Error(), tt.field+": ")
		})
	}
}
