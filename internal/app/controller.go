// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/backend"
	"github.com/wingedpig/winnertrade/internal/dashboard"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

// State is the top-level UI state.
type State string

const (
	StateUnknown            State = "unknown"
	StateBackendUnreachable State = "backend-unreachable"
	StateNeedsSetup         State = "needs-setup"
	StateReady              State = "ready"
)

// ErrInvalidTransition is returned when an operation is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid state transition")

var log = logging.Module("app")

// ConfigGateway is the configuration surface the controller needs.
// *gateway.Gateway implements it.
type ConfigGateway interface {
	Read(ctx context.Context) (*client.AppConfig, error)
	Write(ctx context.Context, cfg *client.AppConfig) (*client.AppConfig, error)
}

// ProcessSupervisor owns the backend child. *backend.Supervisor implements
// it.
type ProcessSupervisor interface {
	Start(ctx context.Context) error
	WaitUntilReady(ctx context.Context, maxWait time.Duration) bool
	Stop(ctx context.Context) error
}

// Poller is the dashboard refresh loop. *dashboard.Poller implements it.
type Poller interface {
	Start(ctx context.Context)
	Stop()
	Snapshot() *dashboard.Snapshot
}

// EngineControl starts and stops the trading engine. *client.EngineClient
// implements it.
type EngineControl interface {
	Start(ctx context.Context, intervalSeconds int) (*client.EngineStartResult, error)
	Stop(ctx context.Context) (*client.EngineStopResult, error)
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Gateway     ConfigGateway
	Supervisor  ProcessSupervisor
	Poller      Poller
	Engine      EngineControl
	Probe       backend.Prober
	Bus         events.EventBus
	WaitTimeout time.Duration

	// Resident keeps the application alive after its last window closes.
	Resident bool
	// EngineInterval is used when StartEngine is given no interval.
	EngineInterval int
}

// View is what a host renders.
type View struct {
	State         State               `json:"state"`
	Error         *apierr.Error       `json:"error,omitempty"`
	Config        *client.AppConfig   `json:"config,omitempty"`
	Snapshot      *dashboard.Snapshot `json:"snapshot,omitempty"`
	EngineRunning bool                `json:"engine_running"`
}

// Controller sequences the supervisor, the gateway and the poller through
// the UI states and reacts to host lifecycle events.
//
// Transition methods are serialized. Event handlers registered through
// Subscribe run synchronously and must not call transition methods; hosts
// hand events to their own goroutine.
type Controller struct {
	gateway        ConfigGateway
	supervisor     ProcessSupervisor
	poller         Poller
	engine         EngineControl
	probe          backend.Prober
	bus            events.EventBus
	waitTimeout    time.Duration
	resident       bool
	engineInterval int

	// transition serializes state changes, including their network calls.
	transition sync.Mutex

	mu              sync.RWMutex
	state           State
	lastErr         *apierr.Error
	config          *client.AppConfig
	engineRunning   bool
	engineChangedAt time.Time
	closed          bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewController creates a controller in StateUnknown.
func NewController(opts ControllerOptions) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		gateway:        opts.Gateway,
		supervisor:     opts.Supervisor,
		poller:         opts.Poller,
		engine:         opts.Engine,
		probe:          opts.Probe,
		bus:            opts.Bus,
		waitTimeout:    opts.WaitTimeout,
		resident:       opts.Resident,
		engineInterval: opts.EngineInterval,
		state:          StateUnknown,
		baseCtx:        ctx,
		baseCancel:     cancel,
	}
	if c.waitTimeout <= 0 {
		c.waitTimeout = backend.DefaultWaitTimeout
	}
	if c.engineInterval <= 0 {
		c.engineInterval = client.DefaultEngineInterval
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// View returns the current state with its data. The engine flag follows the
// last start/stop request until a newer snapshot reports the real state.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := View{
		State:         c.state,
		Error:         c.lastErr,
		Config:        c.config,
		EngineRunning: c.engineRunning,
	}
	if c.state == StateReady && c.poller != nil {
		v.Snapshot = c.poller.Snapshot()
		if v.Snapshot != nil && v.Snapshot.FetchedAt.After(c.engineChangedAt) {
			v.EngineRunning = v.Snapshot.Engine.Running
		}
	}
	return v
}

// Startup runs the host's startup sequence. The backend is launched only
// when it does not already answer; the wait is bounded and its outcome only
// logged, so the entry probe always runs. OnBeforeQuit cancels a running
// Startup and nothing is launched or entered after it.
func (c *Controller) Startup(ctx context.Context) State {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.baseCtx, cancel)
	defer stop()

	if c.probe == nil || !c.probe.Probe(ctx) {
		c.launchBackend(ctx)
	}
	return c.Enter(ctx)
}

func (c *Controller) launchBackend(ctx context.Context) {
	if c.supervisor == nil {
		return
	}

	c.transition.Lock()
	if c.isClosed() {
		c.transition.Unlock()
		log.Debug("shutting down, backend not launched")
		return
	}
	err := c.supervisor.Start(ctx)
	c.transition.Unlock()
	if err != nil {
		log.WithError(err).Error("backend launch failed")
		return
	}
	if !c.supervisor.WaitUntilReady(ctx, c.waitTimeout) {
		log.WithField("waited", c.waitTimeout).Warn("backend not ready, continuing without it")
	}
}

// Enter runs the entry probe: read the configuration and branch on the
// outcome.
func (c *Controller) Enter(ctx context.Context) State {
	c.transition.Lock()
	defer c.transition.Unlock()
	return c.enter(ctx)
}

func (c *Controller) enter(ctx context.Context) State {
	if c.isClosed() {
		return c.State()
	}

	cfg, err := c.gateway.Read(ctx)
	if err == nil {
		c.setConfig(cfg)
		c.moveTo(StateReady, nil)
		return StateReady
	}

	classified := apierr.Classify(err)
	if classified.Kind == apierr.KindNetworkUnreachable {
		c.moveTo(StateBackendUnreachable, classified)
		return StateBackendUnreachable
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		// No configuration yet is the normal first run.
		classified = nil
	}
	c.moveTo(StateNeedsSetup, classified)
	return StateNeedsSetup
}

// Retry re-runs the entry probe after the backend was unreachable. It does
// not launch the backend.
func (c *Controller) Retry(ctx context.Context) (State, error) {
	c.transition.Lock()
	defer c.transition.Unlock()

	if s := c.State(); s != StateBackendUnreachable {
		return s, ErrInvalidTransition
	}
	return c.enter(ctx), nil
}

// SaveConfig writes cfg through the gateway and moves to StateReady on
// success. On failure the state is unchanged.
func (c *Controller) SaveConfig(ctx context.Context, cfg *client.AppConfig) (*client.AppConfig, error) {
	c.transition.Lock()
	defer c.transition.Unlock()

	if s := c.State(); s != StateNeedsSetup && s != StateReady {
		return nil, ErrInvalidTransition
	}

	stored, err := c.gateway.Write(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.setConfig(stored)
	c.moveTo(StateReady, nil)
	return stored, nil
}

// OnAllWindowsClosed handles the host's last window closing and reports
// whether the host should quit. A resident host keeps the backend running
// and only parks the controller; otherwise everything is torn down.
func (c *Controller) OnAllWindowsClosed(ctx context.Context) bool {
	if c.resident {
		c.transition.Lock()
		c.moveTo(StateUnknown, nil)
		c.transition.Unlock()
		return false
	}
	c.OnBeforeQuit(ctx)
	return true
}

// OnActivate handles the host being re-activated. With no open windows the
// controller re-enters from StateUnknown.
func (c *Controller) OnActivate(ctx context.Context, openWindows int) State {
	if openWindows > 0 {
		return c.State()
	}

	c.transition.Lock()
	defer c.transition.Unlock()
	c.moveTo(StateUnknown, nil)
	return c.enter(ctx)
}

// OnBeforeQuit stops the poller and the backend process. It is safe to call
// more than once.
func (c *Controller) OnBeforeQuit(ctx context.Context) {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.moveTo(StateUnknown, nil)
	c.baseCancel()
	if c.supervisor != nil {
		if err := c.supervisor.Stop(ctx); err != nil {
			log.WithError(err).Warn("backend stop failed")
		}
	}
}

// StartEngine starts the trading engine. An interval of zero or less uses
// the configured default.
func (c *Controller) StartEngine(ctx context.Context, intervalSeconds int) (*client.EngineStartResult, error) {
	if c.State() != StateReady {
		return nil, ErrInvalidTransition
	}
	if intervalSeconds <= 0 {
		intervalSeconds = c.engineInterval
	}

	res, err := c.engine.Start(ctx, intervalSeconds)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			c.setEngine(true)
		}
		return nil, apierr.Classify(err)
	}

	c.setEngine(true)
	log.WithField("interval", res.IntervalSeconds).Info("engine started")
	events.Publish(ctx, c.bus, "app", events.EventEngineStarted, map[string]interface{}{
		"interval_seconds": res.IntervalSeconds,
	})
	return res, nil
}

// StopEngine stops the trading engine.
func (c *Controller) StopEngine(ctx context.Context) (*client.EngineStopResult, error) {
	if c.State() != StateReady {
		return nil, ErrInvalidTransition
	}

	res, err := c.engine.Stop(ctx)
	if err != nil {
		return nil, apierr.Classify(err)
	}

	c.setEngine(false)
	log.Info("engine stopped")
	events.Publish(ctx, c.bus, "app", events.EventEngineStopped, nil)
	return res, nil
}

// Subscribe registers fn for state changes.
func (c *Controller) Subscribe(fn func(from, to State)) (events.SubscriptionID, error) {
	if c.bus == nil {
		return "", errors.New("no event bus configured")
	}
	return c.bus.Subscribe(events.EventAppStateChanged, func(ctx context.Context, e events.Event) error {
		from, _ := e.Payload["from"].(string)
		to, _ := e.Payload["to"].(string)
		fn(State(from), State(to))
		return nil
	})
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Controller) setConfig(cfg *client.AppConfig) {
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
}

func (c *Controller) setEngine(running bool) {
	c.mu.Lock()
	c.engineRunning = running
	c.engineChangedAt = time.Now()
	c.mu.Unlock()
}

// moveTo switches state and starts or stops the poller on entering or
// leaving StateReady. Caller holds transition.
func (c *Controller) moveTo(to State, err *apierr.Error) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.lastErr = err
	c.mu.Unlock()

	if c.poller != nil {
		switch {
		case from != StateReady && to == StateReady && c.baseCtx.Err() == nil:
			c.poller.Start(c.baseCtx)
		case from == StateReady && to != StateReady:
			c.poller.Stop()
		}
	}

	if from == to {
		return
	}

	entry := log.WithField("from", from).WithField("to", to)
	payload := map[string]interface{}{"from": string(from), "to": string(to)}
	if err != nil {
		entry = entry.WithField("kind", err.Kind)
		payload["error"] = err.Message
	}
	entry.Info("state changed")
	events.Publish(context.Background(), c.bus, "app", events.EventAppStateChanged, payload)
}
