// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/logging"
)

const (
	DefaultWaitTimeout  = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStopTimeout  = 5 * time.Second
)

var log = logging.Module("backend")

// Options configures a Supervisor.
type Options struct {
	Launcher     Launcher
	Probe        Prober
	Bus          events.EventBus
	PollInterval time.Duration
	StopTimeout  time.Duration
	OutputLines  int
}

// Supervisor owns at most one backend child process at a time.
//
// It never restarts the child on its own: an exit clears the handle and a
// later Start may launch a new one.
type Supervisor struct {
	launcher     Launcher
	probe        Prober
	bus          events.EventBus
	pollInterval time.Duration
	stopTimeout  time.Duration
	output       *OutputBuffer

	mu            sync.RWMutex
	cmd           *exec.Cmd
	phase         Phase
	pid           int
	exitCode      int
	startedAt     time.Time
	stoppedAt     time.Time
	lastErr       string
	stopRequested bool
	waitDone      chan struct{}
	onExit        func(Status)
}

// New creates a supervisor. A nil Probe makes WaitUntilReady fail fast.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		launcher:     opts.Launcher,
		probe:        opts.Probe,
		bus:          opts.Bus,
		pollInterval: opts.PollInterval,
		stopTimeout:  opts.StopTimeout,
		output:       NewOutputBuffer(opts.OutputLines),
		phase:        PhaseNotStarted,
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = DefaultStopTimeout
	}
	return s
}

// Start launches the backend. It is a no-op while a child is starting or
// ready.
func (s *Supervisor) Start(ctx context.Context) error {
	pid, err := s.launch()
	if err != nil || pid == 0 {
		return err
	}

	log.WithField("pid", pid).WithField("launcher", s.launcher.Name()).Info("backend started")
	events.Publish(ctx, s.bus, "backend", events.EventBackendStarted, map[string]interface{}{
		"pid":      pid,
		"launcher": s.launcher.Name(),
	})
	return nil
}

// launch starts the child under mu. It returns a zero pid when a child was
// already running.
func (s *Supervisor) launch() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase.Running() {
		return 0, nil
	}
	if s.launcher == nil {
		return 0, errors.New("no backend launcher configured")
	}

	cmd, err := s.launcher.Command()
	if err != nil {
		s.fail(err)
		return 0, fmt.Errorf("build backend command: %w", err)
	}
	prepareCommand(cmd)

	if s.launcher.CapturesOutput() {
		cmd.Stdout = s.output
		cmd.Stderr = s.output
	}

	s.output.Append(fmt.Sprintf("[winnertrade] Starting %s backend: %s (workdir: %s)",
		s.launcher.Name(), strings.Join(cmd.Args, " "), cmd.Dir))

	if err := cmd.Start(); err != nil {
		s.output.Append(fmt.Sprintf("[winnertrade] Failed to start: %v", err))
		s.fail(err)
		return 0, fmt.Errorf("start backend: %w", err)
	}

	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.phase = PhaseStarting
	s.startedAt = time.Now()
	s.stoppedAt = time.Time{}
	s.exitCode = 0
	s.lastErr = ""
	s.stopRequested = false
	s.waitDone = make(chan struct{})

	go s.waitForExit(cmd, s.waitDone)
	return s.pid, nil
}

// fail records a launch failure. Caller holds mu.
func (s *Supervisor) fail(err error) {
	s.phase = PhaseError
	s.lastErr = err.Error()
	s.stoppedAt = time.Now()
	log.WithError(err).Error("backend launch failed")
}

// WaitUntilReady probes the backend every poll interval until it answers or
// maxWait elapses. It returns true only if a probe succeeded before the
// deadline and never blocks past it. maxWait <= 0 uses DefaultWaitTimeout.
func (s *Supervisor) WaitUntilReady(ctx context.Context, maxWait time.Duration) bool {
	if s.probe == nil {
		return false
	}
	if maxWait <= 0 {
		maxWait = DefaultWaitTimeout
	}
	deadline := time.Now().Add(maxWait)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if s.probe.Probe(ctx) && time.Now().Before(deadline) {
			s.markReady(ctx)
			return true
		}
		select {
		case <-ctx.Done():
			log.WithField("waited", maxWait).Warn("backend did not become ready in time")
			return false
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) markReady(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseStarting {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseReady
	pid := s.pid
	s.mu.Unlock()

	log.WithField("pid", pid).Info("backend ready")
	events.Publish(ctx, s.bus, "backend", events.EventBackendReady, map[string]interface{}{"pid": pid})
}

// Stop terminates the child's process group, escalating to a kill after the
// stop timeout or when ctx is done, and waits for it to exit. Stop is
// idempotent.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cmd == nil || s.cmd.Process == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	cmd := s.cmd
	waitDone := s.waitDone
	pid := s.pid
	s.mu.Unlock()

	if err := terminate(cmd.Process); err != nil {
		log.WithError(err).WithField("pid", pid).Debug("terminate failed")
	}

	select {
	case <-waitDone:
	case <-time.After(s.stopTimeout):
		log.WithField("pid", pid).Warn("backend ignored terminate, killing")
		forceKill(cmd.Process)
		<-waitDone
	case <-ctx.Done():
		forceKill(cmd.Process)
		<-waitDone
	}

	log.WithField("pid", pid).Info("backend stopped")
	events.Publish(context.Background(), s.bus, "backend", events.EventBackendStopped, map[string]interface{}{"pid": pid})
	return nil
}

// Status returns the current process status.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Phase:     s.phase,
		PID:       s.pid,
		ExitCode:  s.exitCode,
		StartedAt: s.startedAt,
		StoppedAt: s.stoppedAt,
		Error:     s.lastErr,
	}
	if s.launcher != nil {
		st.Launcher = s.launcher.Name()
	}
	return st
}

// Output returns the last n captured output lines.
func (s *Supervisor) Output(n int) []string {
	return s.output.Lines(n)
}

// OnExit sets a callback for exits that were not requested through Stop.
func (s *Supervisor) OnExit(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExit = fn
}

func (s *Supervisor) waitForExit(cmd *exec.Cmd, waitDone chan struct{}) {
	err := cmd.Wait()
	s.output.Flush()

	s.mu.Lock()
	s.stoppedAt = time.Now()
	wasStopRequested := s.stopRequested

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		s.exitCode = 0
	case errors.As(err, &exitErr):
		s.exitCode = exitErr.ExitCode()
	default:
		s.exitCode = -1
	}

	if wasStopRequested || s.exitCode == 0 {
		s.phase = PhaseExited
		s.lastErr = ""
	} else {
		s.phase = PhaseError
		if err != nil {
			s.lastErr = err.Error()
		}
	}

	if err != nil {
		s.output.Append(fmt.Sprintf("[winnertrade] Process exited with error: %v", err))
	} else {
		s.output.Append("[winnertrade] Process exited cleanly")
	}

	pid := s.pid
	exitCode := s.exitCode
	onExit := s.onExit
	s.cmd = nil
	s.pid = 0
	s.stopRequested = false
	s.mu.Unlock()

	entry := log.WithField("pid", pid).WithField("exit_code", exitCode)
	if wasStopRequested {
		entry.Debug("backend exited after stop")
	} else {
		entry.Warn("backend exited")
	}
	events.Publish(context.Background(), s.bus, "backend", events.EventBackendExited, map[string]interface{}{
		"pid":       pid,
		"exit_code": exitCode,
		"requested": wasStopRequested,
	})
	close(waitDone)

	if onExit != nil && !wasStopRequested {
		onExit(s.Status())
	}
}
