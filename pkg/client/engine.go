// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Engine interval bounds enforced by the backend.
const (
	DefaultEngineInterval = 60
	MinEngineInterval     = 30
	MaxEngineInterval     = 300
)

// EngineClient controls the trading engine loop.
type EngineClient struct {
	c *Client
}

// Status returns whether the engine loop is running.
func (ec *EngineClient) Status(ctx context.Context) (*EngineStatus, error) {
	var out EngineStatus
	if err := ec.c.do(ctx, http.MethodGet, "/api/engine/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Start starts the engine loop. An interval of zero or less uses the
// backend default; out-of-range values are clamped by the backend.
//
// Starting an engine that is already running returns an *APIError with
// status 409.
func (ec *EngineClient) Start(ctx context.Context, intervalSeconds int) (*EngineStartResult, error) {
	var query url.Values
	if intervalSeconds > 0 {
		query = url.Values{"interval_seconds": {strconv.Itoa(intervalSeconds)}}
	}
	var out EngineStartResult
	if err := ec.c.do(ctx, http.MethodPost, "/api/engine/start", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stop stops the engine loop. Stopping an idle engine is not an error.
func (ec *EngineClient) Stop(ctx context.Context) (*EngineStopResult, error) {
	var out EngineStopResult
	if err := ec.c.do(ctx, http.MethodPost, "/api/engine/stop", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
