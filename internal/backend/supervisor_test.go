// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package backend

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/winnertrade/internal/events"
)

// cmdLauncher launches an arbitrary command, counting launches.
type cmdLauncher struct {
	args     []string
	capture  bool
	launches int32
	err      error
}

func (l *cmdLauncher) Name() string         { return "test" }
func (l *cmdLauncher) CapturesOutput() bool { return l.capture }
func (l *cmdLauncher) Command() (*exec.Cmd, error) {
	if l.err != nil {
		return nil, l.err
	}
	atomic.AddInt32(&l.launches, 1)
	cmd := exec.Command(l.args[0], l.args[1:]...)
	cmd.Dir = "/tmp"
	return cmd, nil
}

// fakeProbe succeeds from the okAfter-th call onwards (1-based). Zero never
// succeeds.
type fakeProbe struct {
	okAfter int32
	calls   int32
	delay   time.Duration
}

func (p *fakeProbe) Probe(ctx context.Context) bool {
	n := atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return false
		}
	}
	return p.okAfter > 0 && n >= p.okAfter
}

func waitForPhase(t *testing.T, s *Supervisor, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Status().Phase == want },
		2*time.Second, 10*time.Millisecond, "phase never became %s (is %s)", want, s.Status().Phase)
}

func TestSupervisor_StartStop(t *testing.T) {
	l := &cmdLauncher{args: []string{"sleep", "60"}}
	s := New(Options{Launcher: l})

	require.NoError(t, s.Start(context.Background()))
	st := s.Status()
	assert.Equal(t, PhaseStarting, st.Phase)
	assert.NotZero(t, st.PID)
	assert.Equal(t, "test", st.Launcher)

	require.NoError(t, s.Stop(context.Background()))
	st = s.Status()
	assert.Equal(t, PhaseExited, st.Phase)
	assert.Zero(t, st.PID)
	assert.Empty(t, st.Error)
}

func TestSupervisor_StartIsNoOpWhileRunning(t *testing.T) {
	l := &cmdLauncher{args: []string{"sleep", "60"}}
	s := New(Options{Launcher: l})
	defer s.Stop(context.Background())

	require.NoError(t, s.Start(context.Background()))
	pid := s.Status().PID

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&l.launches))
	assert.Equal(t, pid, s.Status().PID)
}

func TestSupervisor_StopIdempotent(t *testing.T) {
	s := New(Options{Launcher: &cmdLauncher{args: []string{"sleep", "60"}}})

	assert.NoError(t, s.Stop(context.Background()), "stop before start")

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, PhaseExited, s.Status().Phase)
}

func TestSupervisor_StopEscalatesToKill(t *testing.T) {
	l := &cmdLauncher{args: []string{"sh", "-c", "trap '' TERM; sleep 60"}}
	s := New(Options{Launcher: l, StopTimeout: 200 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Stop(context.Background()))
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, PhaseExited, s.Status().Phase)
}

func TestSupervisor_ExitClearsHandleAndAllowsRestart(t *testing.T) {
	l := &cmdLauncher{args: []string{"sh", "-c", "exit 3"}}
	s := New(Options{Launcher: l})

	exited := make(chan Status, 1)
	s.OnExit(func(st Status) { exited <- st })

	require.NoError(t, s.Start(context.Background()))

	select {
	case st := <-exited:
		assert.Equal(t, PhaseError, st.Phase)
		assert.Equal(t, 3, st.ExitCode)
		assert.NotEmpty(t, st.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("exit callback not called")
	}
	assert.Zero(t, s.Status().PID)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&l.launches))
	waitForPhase(t, s, PhaseError)
}

func TestSupervisor_CleanExit(t *testing.T) {
	s := New(Options{Launcher: &cmdLauncher{args: []string{"true"}}})
	require.NoError(t, s.Start(context.Background()))
	waitForPhase(t, s, PhaseExited)
	assert.Equal(t, 0, s.Status().ExitCode)
}

func TestSupervisor_StopDoesNotCallOnExit(t *testing.T) {
	s := New(Options{Launcher: &cmdLauncher{args: []string{"sleep", "60"}}})
	var called int32
	s.OnExit(func(Status) { atomic.AddInt32(&called, 1) })

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	s := New(Options{Launcher: &cmdLauncher{args: []string{"/nonexistent/winnertrade-backend"}}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, PhaseError, s.Status().Phase)
	assert.NotEmpty(t, s.Status().Error)

	s = New(Options{Launcher: &cmdLauncher{err: errors.New("no exe")}})
	require.Error(t, s.Start(context.Background()))
	assert.Equal(t, PhaseError, s.Status().Phase)

	s = New(Options{})
	assert.Error(t, s.Start(context.Background()))
}

func TestSupervisor_CapturesOutput(t *testing.T) {
	l := &cmdLauncher{args: []string{"sh", "-c", "echo hello; echo oops >&2"}, capture: true}
	s := New(Options{Launcher: l})

	require.NoError(t, s.Start(context.Background()))
	waitForPhase(t, s, PhaseExited)

	out := s.Output(0)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "oops")
	assert.Contains(t, out[0], "[winnertrade] Starting test backend")
}

func TestSupervisor_WaitUntilReady(t *testing.T) {
	probe := &fakeProbe{okAfter: 3}
	s := New(Options{
		Launcher:     &cmdLauncher{args: []string{"sleep", "60"}},
		Probe:        probe,
		PollInterval: 10 * time.Millisecond,
	})
	defer s.Stop(context.Background())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.WaitUntilReady(context.Background(), time.Second))
	assert.Equal(t, PhaseReady, s.Status().Phase)
	assert.Equal(t, int32(3), atomic.LoadInt32(&probe.calls))
}

func TestSupervisor_WaitUntilReadyTimesOut(t *testing.T) {
	probe := &fakeProbe{}
	s := New(Options{Probe: probe, PollInterval: 20 * time.Millisecond})

	start := time.Now()
	ok := s.WaitUntilReady(context.Background(), 150*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Greater(t, atomic.LoadInt32(&probe.calls), int32(1))
}

func TestSupervisor_WaitUntilReadyNeverHangsOnSlowProbe(t *testing.T) {
	// Each probe would take longer than the whole budget.
	probe := &fakeProbe{okAfter: 1, delay: 5 * time.Second}
	s := New(Options{Probe: probe, PollInterval: 10 * time.Millisecond})

	start := time.Now()
	assert.False(t, s.WaitUntilReady(context.Background(), 100*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSupervisor_WaitUntilReadyWithoutChild(t *testing.T) {
	s := New(Options{Probe: &fakeProbe{okAfter: 1}})
	assert.True(t, s.WaitUntilReady(context.Background(), time.Second))
	assert.Equal(t, PhaseNotStarted, s.Status().Phase)
}

func TestSupervisor_PublishesEvents(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	s := New(Options{
		Launcher:     &cmdLauncher{args: []string{"sleep", "60"}},
		Probe:        &fakeProbe{okAfter: 1},
		Bus:          bus,
		PollInterval: 10 * time.Millisecond,
	})

	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.WaitUntilReady(context.Background(), time.Second))
	require.NoError(t, s.Stop(context.Background()))

	history, err := bus.History(events.EventFilter{Types: []string{"backend.*"}})
	require.NoError(t, err)

	var types []string
	for _, e := range history {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		events.EventBackendStarted,
		events.EventBackendReady,
		events.EventBackendExited,
		events.EventBackendStopped,
	}, types)
}
