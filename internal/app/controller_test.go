// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/dashboard"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/gateway"
	"github.com/wingedpig/winnertrade/internal/stubbackend"
	"github.com/wingedpig/winnertrade/pkg/client"
)

type fakeGateway struct {
	mu       sync.Mutex
	readErr  error
	writeErr error
	cfg      *client.AppConfig
	reads    int
}

func (g *fakeGateway) Read(ctx context.Context) (*client.AppConfig, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	if g.readErr != nil {
		return nil, g.readErr
	}
	return g.cfg, nil
}

func (g *fakeGateway) Write(ctx context.Context, cfg *client.AppConfig) (*client.AppConfig, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return nil, g.writeErr
	}
	g.cfg = cfg
	g.readErr = nil
	return cfg, nil
}

func (g *fakeGateway) set(readErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.readErr = readErr
}

type fakeSupervisor struct {
	starts, waits, stops int32
	ready                bool
}

func (s *fakeSupervisor) Start(ctx context.Context) error {
	atomic.AddInt32(&s.starts, 1)
	return nil
}

func (s *fakeSupervisor) WaitUntilReady(ctx context.Context, maxWait time.Duration) bool {
	atomic.AddInt32(&s.waits, 1)
	return s.ready
}

func (s *fakeSupervisor) Stop(ctx context.Context) error {
	atomic.AddInt32(&s.stops, 1)
	return nil
}

type fakePoller struct {
	mu            sync.Mutex
	starts, stops int
	running       bool
	snap          *dashboard.Snapshot
}

func (p *fakePoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	p.running = true
}

func (p *fakePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.running = false
}

func (p *fakePoller) Snapshot() *dashboard.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *fakePoller) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts, p.stops
}

type fakeProbe struct{ ok bool }

func (p fakeProbe) Probe(ctx context.Context) bool { return p.ok }

// gatedProbe blocks until released and then reports the backend down.
type gatedProbe struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedProbe() *gatedProbe {
	return &gatedProbe{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedProbe) Probe(ctx context.Context) bool {
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return false
}

var (
	errUnreachable = &client.TransportError{Method: "GET", Path: "/api/config", Err: errors.New("connection refused")}
	errNotFound    = &client.APIError{StatusCode: http.StatusNotFound, Detail: "Config file not found."}
)

type fixture struct {
	gw   *fakeGateway
	sup  *fakeSupervisor
	poll *fakePoller
	bus  *events.MemoryEventBus
	c    *Controller
}

func newFixture(t *testing.T, resident bool) *fixture {
	t.Helper()
	f := &fixture{
		gw:   &fakeGateway{cfg: gateway.Default()},
		sup:  &fakeSupervisor{},
		poll: &fakePoller{},
		bus:  events.NewMemoryEventBus(events.MemoryBusConfig{}),
	}
	t.Cleanup(func() { f.bus.Close() })
	f.c = NewController(ControllerOptions{
		Gateway:    f.gw,
		Supervisor: f.sup,
		Poller:     f.poll,
		Probe:      fakeProbe{ok: true},
		Bus:        f.bus,
		Resident:   resident,
	})
	return f
}

func TestEnterReady(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, StateUnknown, f.c.State())
	assert.Equal(t, StateReady, f.c.Enter(context.Background()))

	v := f.c.View()
	assert.Equal(t, StateReady, v.State)
	assert.Nil(t, v.Error)
	assert.NotNil(t, v.Config)
	starts, _ := f.poll.counts()
	assert.Equal(t, 1, starts)
}

func TestEnterNeedsSetup(t *testing.T) {
	f := newFixture(t, false)
	f.gw.set(errNotFound)

	assert.Equal(t, StateNeedsSetup, f.c.Enter(context.Background()))
	assert.Nil(t, f.c.View().Error)

	f.gw.set(&client.APIError{StatusCode: http.StatusInternalServerError, Detail: "disk on fire"})
	f.c.OnActivate(context.Background(), 0)
	v := f.c.View()
	assert.Equal(t, StateNeedsSetup, v.State)
	require.NotNil(t, v.Error)
	assert.Equal(t, "disk on fire", v.Error.Message)

	starts, _ := f.poll.counts()
	assert.Equal(t, 0, starts)
}

func TestEnterUnreachable(t *testing.T) {
	f := newFixture(t, false)
	f.gw.set(errUnreachable)

	assert.Equal(t, StateBackendUnreachable, f.c.Enter(context.Background()))
	v := f.c.View()
	require.NotNil(t, v.Error)
	assert.Equal(t, apierr.KindNetworkUnreachable, v.Error.Kind)
	assert.Equal(t, apierr.MsgBackendUnreachable, apierr.Friendly(v.Error))
}

func TestRetry(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.c.Retry(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.gw.set(errUnreachable)
	f.c.Enter(ctx)

	state, err := f.c.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateBackendUnreachable, state)

	f.gw.set(nil)
	state, err = f.c.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	// Retry never launches the backend.
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.sup.starts))
	assert.Equal(t, 3, f.gw.reads)
}

func TestSaveConfig(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.gw.set(errNotFound)
	f.c.Enter(ctx)

	f.gw.writeErr = apierr.Validation("account.risk_percent: must be greater than 0", nil)
	_, err := f.c.SaveConfig(ctx, gateway.Default())
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, StateNeedsSetup, f.c.State())

	f.gw.writeErr = nil
	stored, err := f.c.SaveConfig(ctx, gateway.Default())
	require.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Equal(t, StateReady, f.c.State())

	// Saving again while ready keeps the single poller.
	_, err = f.c.SaveConfig(ctx, gateway.Default())
	require.NoError(t, err)
	starts, stops := f.poll.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0, stops)
}

func TestSaveConfigInvalidState(t *testing.T) {
	f := newFixture(t, false)
	f.gw.set(errUnreachable)
	f.c.Enter(context.Background())

	_, err := f.c.SaveConfig(context.Background(), gateway.Default())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPollerFollowsReady(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.c.Enter(ctx)
	f.c.Enter(ctx)
	starts, stops := f.poll.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0, stops)

	f.gw.set(errUnreachable)
	f.c.Enter(ctx)
	starts, stops = f.poll.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)

	f.gw.set(nil)
	f.c.Retry(ctx)
	starts, stops = f.poll.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestStartupBackendAlreadyUp(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, StateReady, f.c.Startup(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.sup.starts))
}

func TestStartupLaunchesBackend(t *testing.T) {
	f := newFixture(t, false)
	f.c.probe = fakeProbe{ok: false}
	f.sup.ready = true

	assert.Equal(t, StateReady, f.c.Startup(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.starts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.waits))
}

func TestStartupContinuesAfterTimeout(t *testing.T) {
	f := newFixture(t, false)
	f.c.probe = fakeProbe{ok: false}
	f.gw.set(errUnreachable)

	assert.Equal(t, StateBackendUnreachable, f.c.Startup(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.waits))
	assert.Equal(t, 1, f.gw.reads)
}

func TestStartupUnreachableThenRetry(t *testing.T) {
	f := newFixture(t, false)
	f.c.probe = fakeProbe{ok: false}
	f.gw.set(errUnreachable)

	assert.Equal(t, StateBackendUnreachable, f.c.Startup(context.Background()))
	v := f.c.View()
	require.NotNil(t, v.Error)
	assert.Equal(t, apierr.KindNetworkUnreachable, v.Error.Kind)

	// The backend comes up on its own; Retry reaches it without a relaunch.
	f.gw.set(nil)
	state, err := f.c.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
	assert.Nil(t, f.c.View().Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.starts))
	assert.Equal(t, 2, f.gw.reads)

	starts, _ := f.poll.counts()
	assert.Equal(t, 1, starts)
}

func TestStartupAfterQuitLaunchesNothing(t *testing.T) {
	f := newFixture(t, false)
	probe := newGatedProbe()
	f.c.probe = probe
	f.sup.ready = true

	done := make(chan State, 1)
	go func() { done <- f.c.Startup(context.Background()) }()

	<-probe.entered
	f.c.OnBeforeQuit(context.Background())
	close(probe.release)

	select {
	case state := <-done:
		assert.Equal(t, StateUnknown, state)
	case <-time.After(5 * time.Second):
		t.Fatal("Startup did not return")
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&f.sup.starts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.stops))
	assert.Equal(t, 0, f.gw.reads)
	assert.Equal(t, StateUnknown, f.c.State())
	starts, _ := f.poll.counts()
	assert.Equal(t, 0, starts)

	// Host hooks after quit do not re-enter either.
	assert.Equal(t, StateUnknown, f.c.OnActivate(context.Background(), 0))
	assert.Equal(t, 0, f.gw.reads)
}

func TestAllWindowsClosed(t *testing.T) {
	f := newFixture(t, false)
	f.c.Enter(context.Background())

	assert.True(t, f.c.OnAllWindowsClosed(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.sup.stops))
	_, stops := f.poll.counts()
	assert.Equal(t, 1, stops)
}

func TestAllWindowsClosedResident(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.c.Enter(ctx)

	assert.False(t, f.c.OnAllWindowsClosed(ctx))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.sup.stops))
	assert.Equal(t, StateUnknown, f.c.State())
	_, stops := f.poll.counts()
	assert.Equal(t, 1, stops)

	assert.Equal(t, StateReady, f.c.OnActivate(ctx, 0))
	starts, _ := f.poll.counts()
	assert.Equal(t, 2, starts)
}

func TestOnActivateWithWindows(t *testing.T) {
	f := newFixture(t, false)
	f.c.Enter(context.Background())

	assert.Equal(t, StateReady, f.c.OnActivate(context.Background(), 1))
	assert.Equal(t, 1, f.gw.reads)
}

func TestOnBeforeQuit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.c.Enter(ctx)

	f.c.OnBeforeQuit(ctx)
	f.c.OnBeforeQuit(ctx)

	assert.Equal(t, int32(2), atomic.LoadInt32(&f.sup.stops))
	assert.Equal(t, StateUnknown, f.c.State())
	_, stops := f.poll.counts()
	assert.Equal(t, 1, stops)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	var seen []State
	_, err := f.c.Subscribe(func(from, to State) {
		seen = append(seen, to)
	})
	require.NoError(t, err)

	f.gw.set(errUnreachable)
	f.c.Enter(ctx)
	f.c.Enter(ctx)
	f.gw.set(nil)
	f.c.Retry(ctx)

	assert.Equal(t, []State{StateBackendUnreachable, StateReady}, seen)
}

func TestEngineControl(t *testing.T) {
	b := stubbackend.New()
	srv := httptest.NewServer(b.Handler())
	defer srv.Close()
	api := client.New(srv.URL)

	f := newFixture(t, false)
	f.c.engine = api.Engine
	ctx := context.Background()

	_, err := f.c.StartEngine(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.c.Enter(ctx)
	res, err := f.c.StartEngine(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, client.DefaultEngineInterval, res.IntervalSeconds)
	assert.True(t, f.c.View().EngineRunning)
	assert.True(t, b.EngineRunning())

	// An older snapshot does not override the flag.
	f.poll.mu.Lock()
	f.poll.snap = &dashboard.Snapshot{FetchedAt: time.Now().Add(-time.Minute)}
	f.poll.mu.Unlock()
	assert.True(t, f.c.View().EngineRunning)

	_, err = f.c.StartEngine(ctx, 60)
	require.Error(t, err)
	assert.Equal(t, "Engine already running", apierr.Classify(err).Message)
	assert.True(t, f.c.View().EngineRunning)

	_, err = f.c.StopEngine(ctx)
	require.NoError(t, err)
	assert.False(t, f.c.View().EngineRunning)
	assert.False(t, b.EngineRunning())

	// A newer snapshot wins.
	f.poll.mu.Lock()
	f.poll.snap = &dashboard.Snapshot{FetchedAt: time.Now().Add(time.Minute), Engine: client.EngineStatus{Running: true}}
	f.poll.mu.Unlock()
	assert.True(t, f.c.View().EngineRunning)

	history, err := f.bus.History(events.EventFilter{Types: []string{"engine.*"}})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, events.EventEngineStarted, history[0].Type)
	assert.Equal(t, events.EventEngineStopped, history[1].Type)
}
