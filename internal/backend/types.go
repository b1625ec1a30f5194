// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package backend owns the locally spawned trading backend process.
package backend

import (
	"context"
	"time"
)

// Phase is the lifecycle phase of the backend child process.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseStarting
	PhaseReady
	PhaseExited
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseStarting:
		return "starting"
	case PhaseReady:
		return "ready"
	case PhaseExited:
		return "exited"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Running reports whether a child is tracked in this phase.
func (p Phase) Running() bool {
	return p == PhaseStarting || p == PhaseReady
}

// Status is a snapshot of the supervised process.
type Status struct {
	Phase     Phase     `json:"phase"`
	Launcher  string    `json:"launcher,omitempty"`
	PID       int       `json:"pid,omitempty"`
	ExitCode  int       `json:"exit_code"`
	StartedAt time.Time `json:"started_at,omitempty"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Prober reports backend liveness. *health.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context) bool
}
