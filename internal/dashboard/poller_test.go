// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/events"
	"github.com/wingedpig/winnertrade/internal/stubbackend"
	"github.com/wingedpig/winnertrade/pkg/client"
)

func seeded(t *testing.T) (*stubbackend.Backend, *client.Client) {
	t.Helper()
	b := stubbackend.New()
	b.SetStats(client.Stats{TotalTrades: 3, Wins: 2, Losses: 1})
	b.SetPositions([]client.Position{
		{Symbol: "BTC/USDT", Side: "long", UnrealizedPnL: decimal.RequireFromString("12.5")},
		{Symbol: "ETH/USDT", Side: "short", UnrealizedPnL: decimal.RequireFromString("-2.25")},
	})
	b.SetTicker("BTC/USDT", client.Ticker{Last: decimal.NewFromInt(65000)})
	b.AppendLog(client.LogTrades, "t1", "t2")
	b.AppendLog(client.LogSignals, "s1")

	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, client.New(srv.URL)
}

func newPoller(c *client.Client, opts Options) *Poller {
	opts.Data = c.Dashboard
	opts.Engine = c.Engine
	return New(opts)
}

func TestRefreshCycle(t *testing.T) {
	_, c := seeded(t)
	p := newPoller(c, Options{})

	snap, err := p.RefreshCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Stats.TotalTrades)
	assert.Len(t, snap.Positions, 2)
	assert.True(t, snap.Ticker.Last.Equal(decimal.NewFromInt(65000)))
	assert.Equal(t, DefaultSymbol, snap.Symbol)
	require.NotNil(t, snap.LastSignal.Raw)
	assert.Equal(t, "s1", *snap.LastSignal.Raw)
	assert.Equal(t, []string{"t1", "t2"}, snap.TradesLog)
	assert.Equal(t, []string{"s1"}, snap.SignalsLog)
	assert.Empty(t, snap.TrailingLog)
	assert.False(t, snap.Engine.Running)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.True(t, snap.LivePnL().Equal(decimal.RequireFromString("10.25")))

	assert.Same(t, snap, p.Snapshot())
	assert.Nil(t, p.LastError())
}

func TestRefreshCycleEngineStatusDegrades(t *testing.T) {
	b, c := seeded(t)
	_, err := c.Engine.Start(context.Background(), 60)
	require.NoError(t, err)
	b.Fail("/api/engine/status", http.StatusInternalServerError, "engine state unavailable")

	p := newPoller(c, Options{})
	snap, err := p.RefreshCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Engine.Running)
	assert.Nil(t, snap.Engine.IntervalSeconds)
	assert.Len(t, snap.Positions, 2)
}

func TestRefreshCycleEngineRunning(t *testing.T) {
	_, c := seeded(t)
	_, err := c.Engine.Start(context.Background(), 90)
	require.NoError(t, err)

	p := newPoller(c, Options{})
	snap, err := p.RefreshCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Engine.Running)
	require.NotNil(t, snap.Engine.IntervalSeconds)
	assert.Equal(t, 90, *snap.Engine.IntervalSeconds)
}

func TestRefreshCycleFailureKeepsSnapshot(t *testing.T) {
	for _, path := range []string{
		"/api/stats",
		"/api/positions",
		"/api/ticker",
		"/api/last_signal",
		"/api/logs/trades",
		"/api/logs/signals",
		"/api/logs/trailing",
	} {
		t.Run(path, func(t *testing.T) {
			b, c := seeded(t)
			p := newPoller(c, Options{})

			first, err := p.RefreshCycle(context.Background())
			require.NoError(t, err)

			b.SetStats(client.Stats{TotalTrades: 99})
			b.Fail(path, http.StatusInternalServerError, "upstream exploded")

			_, err = p.RefreshCycle(context.Background())
			require.Error(t, err)
			assert.Same(t, first, p.Snapshot())
			assert.Equal(t, 3, p.Snapshot().Stats.TotalTrades)
			require.NotNil(t, p.LastError())
			assert.Equal(t, "upstream exploded", p.LastError().Message)
		})
	}
}

func TestRefreshCycleUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := client.New(url)
	p := newPoller(c, Options{})
	_, err := p.RefreshCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, apierr.KindNetworkUnreachable, apierr.KindOf(err))
	assert.Nil(t, p.Snapshot())
}

func TestStartRefreshesImmediately(t *testing.T) {
	b, c := seeded(t)
	updated := make(chan *Snapshot, 1)
	p := newPoller(c, Options{
		Interval: time.Hour,
		OnUpdate: func(s *Snapshot) {
			select {
			case updated <- s:
			default:
			}
		},
	})

	p.Start(context.Background())
	defer p.Stop()

	select {
	case s := <-updated:
		assert.Len(t, s.Positions, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after start")
	}
	assert.Equal(t, 1, b.Hits("/api/stats"))
}

func TestStartStopIdempotent(t *testing.T) {
	b, c := seeded(t)
	p := newPoller(c, Options{Interval: 20 * time.Millisecond})

	p.Stop()
	assert.False(t, p.Running())

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())

	time.Sleep(110 * time.Millisecond)
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	// One ticker only: at 20ms over ~110ms a doubled loop would approach 12.
	hits := b.Hits("/api/stats")
	assert.GreaterOrEqual(t, hits, 3)
	assert.LessOrEqual(t, hits, 8)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, hits, b.Hits("/api/stats"), "no refresh after stop")
}

func TestFailuresDoNotStopInterval(t *testing.T) {
	b, c := seeded(t)
	b.Fail("/api/ticker", http.StatusBadGateway, "exchange down")

	var failures int32
	p := newPoller(c, Options{
		Interval: 20 * time.Millisecond,
		OnError: func(e *apierr.Error) {
			atomic.AddInt32(&failures, 1)
		},
	})
	p.Start(context.Background())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&failures) >= 3 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, p.Running())
	assert.Equal(t, apierr.KindUpstreamFailure, p.LastError().Kind)

	b.Clear("/api/ticker")
	require.Eventually(t, func() bool { return p.Snapshot() != nil }, 2*time.Second, 10*time.Millisecond)
	p.Stop()
}

func TestStopAbortsInFlight(t *testing.T) {
	b, c := seeded(t)
	b.Delay("/api/stats", 5*time.Second)

	var reported int32
	p := newPoller(c, Options{
		Interval: time.Hour,
		OnError:  func(*apierr.Error) { atomic.AddInt32(&reported, 1) },
		OnUpdate: func(*Snapshot) { atomic.AddInt32(&reported, 1) },
	})
	p.Start(context.Background())
	require.Eventually(t, func() bool { return b.Hits("/api/stats") == 1 }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	p.Stop()
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(0), atomic.LoadInt32(&reported))
	assert.Nil(t, p.LastError())
}

func TestCancelledCycleKeepsLastError(t *testing.T) {
	b, c := seeded(t)
	p := newPoller(c, Options{Interval: time.Hour})

	_, err := p.RefreshCycle(context.Background())
	require.NoError(t, err)

	b.Delay("/api/stats", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.RefreshCycle(ctx)
	require.Error(t, err)

	assert.Nil(t, p.LastError())
	assert.NotNil(t, p.Snapshot())
}

func TestPollEvents(t *testing.T) {
	b, c := seeded(t)
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	defer bus.Close()

	p := newPoller(c, Options{Bus: bus, Interval: time.Hour})
	p.tick(context.Background())
	b.Fail("/api/stats", http.StatusInternalServerError, "boom")
	p.tick(context.Background())

	history, err := bus.History(events.EventFilter{Types: []string{"poll.*"}})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, events.EventPollRefreshed, history[0].Type)
	assert.Equal(t, events.EventPollFailed, history[1].Type)
	assert.Equal(t, "boom", history[1].Payload["message"])
}
