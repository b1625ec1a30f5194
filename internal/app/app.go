// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the shell's components together and drives them
// through the UI states.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wingedpig/winnertrade/internal/backend"
	"github.com/wingedpig/winnertrade/internal/config"
	"github.com/wingedpig/winnertrade/internal/dashboard"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/gateway"
	"github.com/wingedpig/winnertrade/internal/health"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

// App is the main application container.
type App struct {
	version    string
	config     *config.Config
	eventBus   *events.MemoryEventBus
	client     *client.Client
	supervisor *backend.Supervisor
	gateway    *gateway.Gateway
	poller     *dashboard.Poller
	controller *Controller
	logCloser  io.Closer

	shutdownOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string // settings file; empty searches the default locations
	Version    string
	Debug      bool
	QuietLog   bool   // log to file only
	LogFile    string // used when the settings name no log file
}

// New loads settings and builds every component. Nothing is started.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	path := opts.ConfigPath
	if path == "" {
		path = loader.FindConfig()
	}
	cfg, err := loader.LoadWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = opts.LogFile
	}
	level := cfg.Logging.Level
	if opts.Debug {
		level = "debug"
	}
	closer, err := logging.Init(logging.Config{
		Level:      level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Quiet:      opts.QuietLog && cfg.Logging.File != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}

	app := &App{
		version:   opts.Version,
		config:    cfg,
		logCloser: closer,
	}

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.HistoryMaxEvents,
		HistoryMaxAge:    cfg.Events.GetHistoryMaxAge(),
	})

	app.client = client.New(cfg.API.URL, client.WithLogger(logging.RestyLogger{Entry: logging.Module("client")}))

	launcher, err := backend.LauncherFromConfig(cfg.API, cfg.Backend)
	if err != nil {
		log.WithError(err).Warn("no backend launcher, the backend must be started separately")
	}
	prober := health.NewProber(cfg.API.HealthURL(), cfg.API.GetProbeTimeout())
	app.supervisor = backend.New(backend.Options{
		Launcher:     launcher,
		Probe:        prober,
		Bus:          app.eventBus,
		PollInterval: cfg.Backend.GetPollInterval(),
		StopTimeout:  cfg.Backend.GetStopTimeout(),
		OutputLines:  cfg.Backend.OutputLines,
	})

	app.gateway = gateway.New(app.client.Config)

	app.poller = dashboard.New(dashboard.Options{
		Data:     app.client.Dashboard,
		Engine:   app.client.Engine,
		Bus:      app.eventBus,
		Interval: cfg.Dashboard.GetRefreshInterval(),
		Symbol:   cfg.Dashboard.DefaultSymbol,
		LogLimit: cfg.Dashboard.LogLimit,
	})

	app.controller = NewController(ControllerOptions{
		Gateway:        app.gateway,
		Supervisor:     app.supervisor,
		Poller:         app.poller,
		Engine:         app.client.Engine,
		Probe:          prober,
		Bus:            app.eventBus,
		WaitTimeout:    cfg.Backend.GetWaitTimeout(),
		Resident:       cfg.Host.Resident(),
		EngineInterval: cfg.Dashboard.EngineInterval,
	})

	app.supervisor.OnExit(func(st backend.Status) {
		log.WithField("exit_code", st.ExitCode).Warn("backend exited unexpectedly")
	})

	return app, nil
}

// Version returns the application version string.
func (app *App) Version() string { return app.version }

// Config returns the loaded settings.
func (app *App) Config() *config.Config { return app.config }

// EventBus returns the event bus.
func (app *App) EventBus() events.EventBus { return app.eventBus }

// ActivityTypes are the event types listed as recent activity. Routine
// poll refreshes are left out.
var ActivityTypes = []string{"backend.*", "app.*", "engine.*", events.EventPollFailed}

// RecentEvents returns up to limit of the newest activity events, oldest
// first.
func (app *App) RecentEvents(limit int) ([]events.Event, error) {
	return app.eventBus.History(events.EventFilter{Types: ActivityTypes, Limit: limit})
}

// Client returns the backend API client.
func (app *App) Client() *client.Client { return app.client }

// Supervisor returns the backend process supervisor.
func (app *App) Supervisor() *backend.Supervisor { return app.supervisor }

// Gateway returns the configuration gateway.
func (app *App) Gateway() *gateway.Gateway { return app.gateway }

// Poller returns the dashboard poller.
func (app *App) Poller() *dashboard.Poller { return app.poller }

// Controller returns the lifecycle controller.
func (app *App) Controller() *Controller { return app.controller }

// Shutdown stops the poller and the backend, then releases the event bus
// and log file. Safe to call multiple times.
func (app *App) Shutdown(ctx context.Context) error {
	app.shutdownOnce.Do(func() {
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		app.controller.OnBeforeQuit(shutdownCtx)
		app.eventBus.Close()

		log.Info("Shutdown complete")
		if app.logCloser != nil {
			app.logCloser.Close()
		}
	})
	return nil
}
