// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"strings"
	"sync"
)

const (
	defaultOutputLines = 500
	maxLineLen         = 64 * 1024
)

// OutputBuffer is a thread-safe ring buffer of child output lines. It is an
// io.Writer so it can be attached directly to a command's stdout/stderr.
type OutputBuffer struct {
	mu       sync.Mutex
	lines    []string
	capacity int
	size     int
	head     int // next write position
	partial  []byte
}

// NewOutputBuffer creates a buffer holding at most capacity lines.
func NewOutputBuffer(capacity int) *OutputBuffer {
	if capacity <= 0 {
		capacity = defaultOutputLines
	}
	return &OutputBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Write splits p into lines. An unterminated tail is held until the next
// newline or Flush.
func (b *OutputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial = append(b.partial, p...)
	for {
		i := bytes.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.appendLocked(string(b.partial[:i]))
		b.partial = b.partial[i+1:]
	}
	if len(b.partial) > maxLineLen {
		b.appendLocked(string(b.partial))
		b.partial = nil
	}
	return len(p), nil
}

// Append adds a single line.
func (b *OutputBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(line)
}

// Flush commits any unterminated tail as a line.
func (b *OutputBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.partial) > 0 {
		b.appendLocked(string(b.partial))
		b.partial = nil
	}
}

func (b *OutputBuffer) appendLocked(line string) {
	line = strings.TrimSuffix(line, "\r")
	if len(line) > maxLineLen {
		line = line[:maxLineLen] + "... [truncated]"
	}
	b.lines[b.head] = line
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Lines returns the last n lines, oldest first. n <= 0 returns all.
func (b *OutputBuffer) Lines(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.size {
		n = b.size
	}
	result := make([]string, n)
	start := (b.head - n + b.capacity) % b.capacity
	for i := 0; i < n; i++ {
		result[i] = b.lines[(start+i)%b.capacity]
	}
	return result
}

// Size returns the number of lines held.
func (b *OutputBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
