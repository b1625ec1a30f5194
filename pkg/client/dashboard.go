// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// LogKind identifies one of the backend's append-only logs.
type LogKind string

const (
	LogTrades   LogKind = "trades"
	LogSignals  LogKind = "signals"
	LogTrailing LogKind = "trailing"
)

// DefaultLogLimit is the number of lines returned when no limit is given.
const DefaultLogLimit = 100

// DashboardClient provides access to read-only operational data.
type DashboardClient struct {
	c *Client
}

// Stats returns the trading statistics snapshot.
func (dc *DashboardClient) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := dc.c.do(ctx, http.MethodGet, "/api/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Positions returns open positions, optionally filtered to one symbol.
func (dc *DashboardClient) Positions(ctx context.Context, symbol string) ([]Position, error) {
	var query url.Values
	if symbol != "" {
		query = url.Values{"symbol": {symbol}}
	}
	var out []Position
	if err := dc.c.do(ctx, http.MethodGet, "/api/positions", query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Position{}
	}
	return out, nil
}

// Ticker returns the latest price for symbol.
func (dc *DashboardClient) Ticker(ctx context.Context, symbol string) (*Ticker, error) {
	if symbol == "" {
		return nil, fmt.Errorf("ticker: symbol is required")
	}
	var out Ticker
	query := url.Values{"symbol": {symbol}}
	if err := dc.c.do(ctx, http.MethodGet, "/api/ticker", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the account balance.
func (dc *DashboardClient) Balance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := dc.c.do(ctx, http.MethodGet, "/api/balance", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LastSignal returns the most recent signal entry.
func (dc *DashboardClient) LastSignal(ctx context.Context) (*LastSignal, error) {
	var out LastSignal
	if err := dc.c.do(ctx, http.MethodGet, "/api/last_signal", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs returns the last limit lines of the given log. A limit of zero or
// less uses DefaultLogLimit.
func (dc *DashboardClient) Logs(ctx context.Context, kind LogKind, limit int) ([]string, error) {
	switch kind {
	case LogTrades, LogSignals, LogTrailing:
	default:
		return nil, fmt.Errorf("unknown log kind %q", kind)
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var out []string
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := dc.c.do(ctx, http.MethodGet, "/api/logs/"+string(kind), query, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
