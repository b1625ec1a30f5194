// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the shell's single path to the backend configuration:
// read, validate, save and live credential tests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/wingedpig/winnertrade/internal/apierr"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

// MaskToken is the placeholder the backend returns for a stored secret and
// accepts on write as "keep the stored secret".
const MaskToken = "********"

// ErrConfigNotFound means the backend has no stored configuration yet.
var ErrConfigNotFound = errors.New("configuration not found")

var log = logging.Module("gateway")

// ConfigAPI is the backend configuration surface. *client.ConfigClient
// implements it.
type ConfigAPI interface {
	Get(ctx context.Context) (*client.AppConfig, error)
	Put(ctx context.Context, cfg *client.AppConfig) (*client.AppConfig, error)
	TestConnection(ctx context.Context, cfg *client.AppConfig) (*client.TestConnectionResult, error)
	Path(ctx context.Context) (string, error)
}

// Gateway reads and writes the backend configuration. Every error it
// returns is an *apierr.Error.
type Gateway struct {
	api ConfigAPI

	mu              sync.Mutex
	hasStoredSecret bool
}

// New creates a gateway over api.
func New(api ConfigAPI) *Gateway {
	return &Gateway{api: api}
}

// Read returns the stored configuration with its secret masked.
//
// A backend without configuration yields an error matching
// ErrConfigNotFound (kind unknown); an unreachable backend yields kind
// network-unreachable.
func (g *Gateway) Read(ctx context.Context) (*client.AppConfig, error) {
	cfg, err := g.api.Get(ctx)
	if err != nil {
		c := apierr.Classify(err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			c = &apierr.Error{Kind: c.Kind, Message: c.Message, Err: fmt.Errorf("%w: %w", ErrConfigNotFound, err)}
		}
		return nil, c
	}

	g.rememberSecret(cfg)
	return cfg, nil
}

// Write validates cfg and stores it, returning the stored document.
//
// Nothing is sent when validation fails. A secret equal to MaskToken keeps
// the stored secret; an empty secret is turned into MaskToken when one is
// stored, so a save never blanks it.
func (g *Gateway) Write(ctx context.Context, cfg *client.AppConfig) (*client.AppConfig, error) {
	if cfg == nil {
		return nil, apierr.Validation("configuration is required", nil)
	}
	if err := Validate(cfg); err != nil {
		return nil, apierr.Validation(err.Error(), err)
	}

	out := *cfg
	g.mu.Lock()
	if out.Exchange.APISecret == "" && g.hasStoredSecret {
		out.Exchange.APISecret = MaskToken
	}
	g.mu.Unlock()

	stored, err := g.api.Put(ctx, &out)
	if err != nil {
		c := apierr.Classify(err)
		log.WithField("kind", c.Kind).WithError(err).Warn("config save failed")
		return nil, c
	}

	g.rememberSecret(stored)
	log.Info("config saved")
	return stored, nil
}

// TestConnection asks the backend to check cfg's credentials against the
// exchange.
//
// The mask token is never sent. A masked secret is rejected for a live
// account and blanked for a paper account.
func (g *Gateway) TestConnection(ctx context.Context, cfg *client.AppConfig) (*client.TestConnectionResult, error) {
	if cfg == nil {
		return nil, apierr.Validation("configuration is required", nil)
	}
	if err := Validate(cfg); err != nil {
		return nil, apierr.Validation(err.Error(), err)
	}

	out := *cfg
	if out.Exchange.APISecret == MaskToken {
		if !out.Exchange.PaperTrade {
			return nil, apierr.Validation("Re-enter the API secret to test a live account; the stored secret is not sent back for testing.", nil)
		}
		out.Exchange.APISecret = ""
	}

	res, err := g.api.TestConnection(ctx, &out)
	if err != nil {
		return nil, apierr.Classify(err)
	}
	if !res.OK {
		return res, &apierr.Error{Kind: apierr.KindUpstreamFailure, Message: res.Message}
	}
	return res, nil
}

// Path returns the backend's configuration file location.
func (g *Gateway) Path(ctx context.Context) (string, error) {
	path, err := g.api.Path(ctx)
	if err != nil {
		return "", apierr.Classify(err)
	}
	return path, nil
}

func (g *Gateway) rememberSecret(cfg *client.AppConfig) {
	if cfg == nil {
		return
	}
	g.mu.Lock()
	g.hasStoredSecret = cfg.Exchange.APISecret != ""
	g.mu.Unlock()
}
