// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputBuffer_Lines(t *testing.T) {
	b := NewOutputBuffer(3)
	b.Write([]byte("one\ntwo\r\nthr"))
	assert.Equal(t, []string{"one", "two"}, b.Lines(0))

	b.Write([]byte("ee\nfour\n"))
	assert.Equal(t, []string{"two", "three", "four"}, b.Lines(0))
	assert.Equal(t, []string{"four"}, b.Lines(1))
	assert.Equal(t, 3, b.Size())
}

func TestOutputBuffer_Flush(t *testing.T) {
	b := NewOutputBuffer(10)
	b.Write([]byte("partial"))
	assert.Empty(t, b.Lines(0))

	b.Flush()
	assert.Equal(t, []string{"partial"}, b.Lines(0))
}

func TestOutputBuffer_LongLine(t *testing.T) {
	b := NewOutputBuffer(10)
	b.Append(strings.Repeat("x", maxLineLen+10))
	line := b.Lines(1)[0]
	assert.True(t, strings.HasSuffix(line, "[truncated]"))
}

func TestPhase_JSON(t *testing.T) {
	data, err := json.Marshal(Status{Phase: PhaseReady})
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"ready"`)

	assert.Equal(t, "not-started", PhaseNotStarted.String())
	assert.True(t, PhaseStarting.Running())
	assert.False(t, PhaseExited.Running())
}
