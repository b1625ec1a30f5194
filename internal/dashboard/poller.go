// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package dashboard keeps a periodically refreshed snapshot of the backend's
// operational data.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

const (
	DefaultInterval = time.Second
	DefaultSymbol   = "BTC/USDT"
)

var log = logging.Module("dashboard")

// DataAPI is the read-only backend surface. *client.DashboardClient
// implements it.
type DataAPI interface {
	Stats(ctx context.Context) (*client.Stats, error)
	Positions(ctx context.Context, symbol string) ([]client.Position, error)
	Ticker(ctx context.Context, symbol string) (*client.Ticker, error)
	LastSignal(ctx context.Context) (*client.LastSignal, error)
	Logs(ctx context.Context, kind client.LogKind, limit int) ([]string, error)
}

// EngineAPI reports the engine run state. *client.EngineClient implements
// it.
type EngineAPI interface {
	Status(ctx context.Context) (*client.EngineStatus, error)
}

// Options configures a Poller.
type Options struct {
	Data     DataAPI
	Engine   EngineAPI
	Bus      events.EventBus
	Interval time.Duration
	Symbol   string
	LogLimit int

	// OnUpdate and OnError run on the polling goroutine. They must not call
	// Stop.
	OnUpdate func(*Snapshot)
	OnError  func(*apierr.Error)
}

// Poller refreshes a Snapshot on a fixed interval while started.
type Poller struct {
	data     DataAPI
	engine   EngineAPI
	bus      events.EventBus
	interval time.Duration
	symbol   string
	logLimit int
	onUpdate func(*Snapshot)
	onError  func(*apierr.Error)

	snapshot atomic.Pointer[Snapshot]
	lastErr  atomic.Pointer[apierr.Error]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped poller.
func New(opts Options) *Poller {
	p := &Poller{
		data:     opts.Data,
		engine:   opts.Engine,
		bus:      opts.Bus,
		interval: opts.Interval,
		symbol:   opts.Symbol,
		logLimit: opts.LogLimit,
		onUpdate: opts.OnUpdate,
		onError:  opts.OnError,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.symbol == "" {
		p.symbol = DefaultSymbol
	}
	if p.logLimit <= 0 {
		p.logLimit = client.DefaultLogLimit
	}
	return p
}

// RefreshCycle fetches every part of the snapshot concurrently.
//
// A failed engine status read degrades to "not running". Any other failed
// read fails the cycle and the held snapshot is left as it was; on success
// the held snapshot is replaced as a whole.
func (p *Poller) RefreshCycle(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Symbol: p.symbol}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := p.data.Stats(gctx)
		if err != nil {
			return err
		}
		snap.Stats = *stats
		return nil
	})
	g.Go(func() error {
		positions, err := p.data.Positions(gctx, "")
		if err != nil {
			return err
		}
		snap.Positions = positions
		return nil
	})
	g.Go(func() error {
		ticker, err := p.data.Ticker(gctx, p.symbol)
		if err != nil {
			return err
		}
		snap.Ticker = *ticker
		return nil
	})
	g.Go(func() error {
		sig, err := p.data.LastSignal(gctx)
		if err != nil {
			return err
		}
		snap.LastSignal = *sig
		return nil
	})
	logs := []struct {
		kind client.LogKind
		dst  *[]string
	}{
		{client.LogTrades, &snap.TradesLog},
		{client.LogSignals, &snap.SignalsLog},
		{client.LogTrailing, &snap.TrailingLog},
	}
	for _, l := range logs {
		l := l
		g.Go(func() error {
			lines, err := p.data.Logs(gctx, l.kind, p.logLimit)
			if err != nil {
				return err
			}
			*l.dst = lines
			return nil
		})
	}
	g.Go(func() error {
		status, err := p.engine.Status(gctx)
		if err != nil {
			log.WithError(err).Debug("engine status unavailable, assuming stopped")
			snap.Engine = client.EngineStatus{}
			return nil
		}
		snap.Engine = *status
		return nil
	})

	if err := g.Wait(); err != nil {
		c := apierr.Classify(err)
		// A cycle cut short by Stop is not a failure of the backend.
		if ctx.Err() == nil {
			p.lastErr.Store(c)
		}
		return nil, c
	}

	snap.FetchedAt = time.Now()
	p.snapshot.Store(snap)
	p.lastErr.Store(nil)
	return snap, nil
}

// Snapshot returns the last successfully fetched snapshot, or nil.
func (p *Poller) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// LastError returns the error of the most recent cycle, or nil if it
// succeeded.
func (p *Poller) LastError() *apierr.Error {
	return p.lastErr.Load()
}

// Running reports whether the interval is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start runs a refresh immediately and then every interval until Stop or
// until ctx is done. Starting a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	log.WithField("interval", p.interval).Debug("poller started")
	go p.loop(ctx, p.done)
}

// Stop cancels the interval and any in-flight refresh and waits for the
// polling goroutine to return. Stopping a stopped poller does nothing.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Debug("poller stopped")
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	snap, err := p.RefreshCycle(ctx)
	if ctx.Err() != nil {
		// Torn down mid-cycle; nothing to report.
		return
	}
	if err != nil {
		c := apierr.Classify(err)
		log.WithField("kind", c.Kind).Warn("refresh failed: ", c.Message)
		events.Publish(ctx, p.bus, "dashboard", events.EventPollFailed, map[string]interface{}{
			"kind":    string(c.Kind),
			"message": c.Message,
		})
		if p.onError != nil {
			p.onError(c)
		}
		return
	}

	events.Publish(ctx, p.bus, "dashboard", events.EventPollRefreshed, map[string]interface{}{
		"positions": len(snap.Positions),
		"engine":    snap.Engine.Running,
	})
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
