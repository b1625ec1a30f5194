// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/http"
)

// ConfigClient provides access to the backend configuration.
type ConfigClient struct {
	c *Client
}

// Get returns the stored configuration with secrets masked.
//
// A backend that has no configuration yet answers 404, returned as an
// *APIError with StatusCode 404.
func (cc *ConfigClient) Get(ctx context.Context) (*AppConfig, error) {
	var cfg AppConfig
	if err := cc.c.do(ctx, http.MethodGet, "/api/config", nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Put replaces the stored configuration and returns the document as stored.
//
// A secret equal to the mask token tells the backend to keep the stored value.
func (cc *ConfigClient) Put(ctx context.Context, cfg *AppConfig) (*AppConfig, error) {
	var out AppConfig
	if err := cc.c.do(ctx, http.MethodPut, "/api/config", nil, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestConnection asks the backend to check cfg's exchange credentials
// against the live exchange.
func (cc *ConfigClient) TestConnection(ctx context.Context, cfg *AppConfig) (*TestConnectionResult, error) {
	var out TestConnectionResult
	if err := cc.c.do(ctx, http.MethodPost, "/api/config/test-connection", nil, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Path returns the on-disk location of the active configuration.
func (cc *ConfigClient) Path(ctx context.Context) (string, error) {
	var out ConfigPath
	if err := cc.c.do(ctx, http.MethodGet, "/api/config/path", nil, nil, &out); err != nil {
		return "", err
	}
	return out.ConfigPath, nil
}
