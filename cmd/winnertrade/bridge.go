// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/app"
	"github.com/wingedpig/winnertrade/internal/dashboard"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/gateway"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

// Front end event names.
const (
	eventView     = "view"
	eventSnapshot = "snapshot"
	eventPollErr  = "poll-error"
)

var log = logging.Module("desktop")

// Bridge is bound to the front end. Its exported methods become the
// window.go.main.Bridge API.
type Bridge struct {
	app  *app.App
	ctrl *app.Controller

	mu     sync.Mutex
	ctx    context.Context
	hidden bool
}

// NewBridge creates a bridge over a.
func NewBridge(a *app.App) *Bridge {
	return &Bridge{app: a, ctrl: a.Controller()}
}

// Startup is called when the app starts. The window is created before the
// backend is ready; the front end shows the unknown state meanwhile.
func (b *Bridge) Startup(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	bus := b.app.EventBus()
	forward := func(_ context.Context, e events.Event) error {
		switch e.Type {
		case events.EventPollRefreshed:
			runtime.EventsEmit(ctx, eventSnapshot, b.app.Poller().Snapshot())
		case events.EventPollFailed:
			runtime.EventsEmit(ctx, eventPollErr, e.Payload)
		default:
			runtime.EventsEmit(ctx, eventView, b.ctrl.View())
		}
		return nil
	}
	for _, pattern := range []string{events.EventAppStateChanged, "poll.*", "engine.*"} {
		if _, err := bus.SubscribeAsync(pattern, forward, 64); err != nil {
			log.WithError(err).Warn("event forwarding unavailable")
		}
	}

	go b.ctrl.Startup(ctx)
}

// DomReady re-enters from the unknown state when the page is (re)loaded.
func (b *Bridge) DomReady(ctx context.Context) {
	b.mu.Lock()
	wasHidden := b.hidden
	b.hidden = false
	b.mu.Unlock()

	if wasHidden {
		go b.ctrl.OnActivate(ctx, 0)
	}
}

// BeforeClose handles the last window closing. A resident app hides the
// window instead of quitting.
func (b *Bridge) BeforeClose(ctx context.Context) bool {
	if quit := b.ctrl.OnAllWindowsClosed(ctx); quit {
		return false
	}
	b.mu.Lock()
	b.hidden = true
	b.mu.Unlock()
	runtime.WindowHide(ctx)
	return true
}

// Shutdown stops the backend before the process exits.
func (b *Bridge) Shutdown(ctx context.Context) {
	b.app.Shutdown(ctx)
}

func (b *Bridge) reqCtx() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// friendly turns err into the text the front end shows.
func friendly(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, app.ErrInvalidTransition) {
		return err
	}
	return errors.New(apierr.Friendly(err))
}

// State returns the current view.
func (b *Bridge) State() app.View {
	return b.ctrl.View()
}

// Activate is called by the front end when the window becomes visible again.
func (b *Bridge) Activate() app.View {
	b.mu.Lock()
	wasHidden := b.hidden
	b.hidden = false
	b.mu.Unlock()

	if wasHidden {
		b.ctrl.OnActivate(b.reqCtx(), 0)
	}
	return b.ctrl.View()
}

// Snapshot returns the last dashboard snapshot, or nil.
func (b *Bridge) Snapshot() *dashboard.Snapshot {
	return b.app.Poller().Snapshot()
}

// Retry re-checks an unreachable backend.
func (b *Bridge) Retry() (app.View, error) {
	_, err := b.ctrl.Retry(b.reqCtx())
	return b.ctrl.View(), friendly(err)
}

// ReadConfig returns the stored configuration with the secret masked.
func (b *Bridge) ReadConfig() (*client.AppConfig, error) {
	cfg, err := b.app.Gateway().Read(b.reqCtx())
	return cfg, friendly(err)
}

// SaveConfig validates and stores cfg.
func (b *Bridge) SaveConfig(cfg client.AppConfig) (*client.AppConfig, error) {
	stored, err := b.ctrl.SaveConfig(b.reqCtx(), &cfg)
	if err != nil {
		if errors.Is(err, app.ErrInvalidTransition) {
			return nil, err
		}
		return nil, errors.New(apierr.FriendlyConnection(err))
	}
	return stored, nil
}

// TestConnection checks cfg's exchange credentials.
func (b *Bridge) TestConnection(cfg client.AppConfig) (*client.TestConnectionResult, error) {
	res, err := b.app.Gateway().TestConnection(b.reqCtx(), &cfg)
	if err != nil {
		return res, errors.New(apierr.FriendlyConnection(err))
	}
	return res, nil
}

// ConfigPath returns the backend's configuration file location.
func (b *Bridge) ConfigPath() (string, error) {
	path, err := b.app.Gateway().Path(b.reqCtx())
	return path, friendly(err)
}

// DefaultConfig returns the configuration offered on first-time setup.
func (b *Bridge) DefaultConfig() *client.AppConfig {
	return gateway.Default()
}

// NormalizeSymbols parses the comma or space separated symbol input.
func (b *Bridge) NormalizeSymbols(input string) []string {
	return gateway.NormalizeSymbols(input)
}

// StartEngine starts the trading engine. Zero uses the configured interval.
func (b *Bridge) StartEngine(intervalSeconds int) (*client.EngineStartResult, error) {
	res, err := b.ctrl.StartEngine(b.reqCtx(), intervalSeconds)
	return res, friendly(err)
}

// StopEngine stops the trading engine.
func (b *Bridge) StopEngine() (*client.EngineStopResult, error) {
	res, err := b.ctrl.StopEngine(b.reqCtx())
	return res, friendly(err)
}

// BackendOutput returns the last n lines the backend process printed.
func (b *Bridge) BackendOutput(n int) []string {
	return b.app.Supervisor().Output(n)
}

// RecentEvents returns the newest n activity events, oldest first.
func (b *Bridge) RecentEvents(n int) ([]events.Event, error) {
	return b.app.RecentEvents(n)
}
