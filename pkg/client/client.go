// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the WinnerTrade backend API.
//
// The backend is a long-running trading engine process that exposes a small
// REST/JSON surface: a liveness endpoint, configuration management, read-only
// dashboard data and engine run-state control. This package gives typed
// access to all of it.
//
// # Getting Started
//
//	c := client.New("http://127.0.0.1:8000")
//
//	// Read the stored configuration
//	cfg, err := c.Config.Get(ctx)
//
//	// Fetch statistics and open positions
//	stats, err := c.Dashboard.Stats(ctx)
//	positions, err := c.Dashboard.Positions(ctx, "")
//
//	// Start the engine with a 60 second evaluation interval
//	res, err := c.Engine.Start(ctx, 60)
//
// # Error Handling
//
// Non-2xx responses are returned as *APIError values. The backend usually
// includes a structured "detail" string which is exposed as APIError.Detail.
// Failures that never produced a response (connection refused, DNS failure,
// aborted requests) are returned as *TransportError:
//
//	_, err := c.Config.Get(ctx)
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
//	    // no configuration stored yet
//	}
//
// # Context Support
//
// All API methods accept a context.Context. Cancelling the context aborts the
// in-flight request.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout is the per-request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// Client is a WinnerTrade backend API client.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     resty.Logger
	rc         *resty.Client

	// Config provides access to configuration read/write and connection tests.
	Config *ConfigClient

	// Dashboard provides access to read-only operational data.
	Dashboard *DashboardClient

	// Engine provides access to engine run-state control.
	Engine *EngineClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a new client for the backend at baseURL.
//
// Any trailing slash is removed. Requests are never retried by the client;
// callers decide what a failure means.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rc = resty.NewWithClient(c.httpClient)
	} else {
		c.rc = resty.New()
	}
	c.rc.SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if c.logger != nil {
		c.rc.SetLogger(c.logger)
	}

	c.Config = &ConfigClient{c: c}
	c.Dashboard = &DashboardClient{c: c}
	c.Engine = &EngineClient{c: c}

	return c
}

// WithTimeout sets the timeout applied to every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger routes transport diagnostics to l.
func WithLogger(l resty.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthURL returns the absolute URL of the liveness endpoint.
func (c *Client) HealthURL() string {
	return c.baseURL + "/health"
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Detail is the structured "detail" string from the body, if present.
	Detail string

	// Body is the raw response body.
	Body string
}

// Error returns the raw response text, which is what the backend intended
// the caller to see.
func (e *APIError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// do performs a request and decodes a successful JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req := c.rc.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if !resp.IsSuccess() {
		return newAPIError(resp.StatusCode(), resp.Body())
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// newAPIError builds an APIError, extracting a string "detail" field when the
// body is a JSON object carrying one.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil {
			apiErr.Detail = detail
		}
	}
	return apiErr
}
