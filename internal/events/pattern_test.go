// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternMatcher_Match(t *testing.T) {
	pm := NewPatternMatcher()

	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"backend.started", "*", true},
		{"backend.started", "backend.started", true},
		{"backend.started", "backend.*", true},
		{"backendx.started", "backend.*", false},
		{"engine.stopped", "*.stopped", true},
		{"backend.stopped", "*.stopped", true},
		{"poll.failed", "*.stopped", false},
		{"poll.failed", "", false},
		{"", "*", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType+"/"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, pm.Match(tt.eventType, tt.pattern))
		})
	}
}

func TestPatternMatcher_CompileEmpty(t *testing.T) {
	_, err := NewPatternMatcher().Compile("")
	assert.Error(t, err)
}
