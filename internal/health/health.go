// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package health answers "is the backend answering HTTP right now?".
package health

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wingedpig/winnertrade/internal/logging"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 2 * time.Second

var log = logging.Module("health")

// Result is the outcome of one probe.
type Result struct {
	OK bool      `json:"ok"`
	At time.Time `json:"at"`
}

// Prober issues liveness probes against a fixed URL.
type Prober struct {
	rc      *resty.Client
	url     string
	timeout time.Duration
}

// NewProber returns a prober for url. A timeout of zero uses DefaultTimeout.
func NewProber(url string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetRetryCount(0).
		SetLogger(logging.RestyLogger{Entry: log})
	return &Prober{rc: rc, url: url, timeout: timeout}
}

// URL returns the probed URL.
func (p *Prober) URL() string {
	return p.url
}

// Probe issues one GET and reports whether it returned 2xx within the
// timeout. The request is aborted when the timeout elapses. Probe never
// returns an error.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.rc.R().SetContext(ctx).Get(p.url)
	if err != nil {
		log.WithError(err).Debug("probe failed")
		return false
	}
	if !resp.IsSuccess() {
		log.WithField("status", resp.StatusCode()).Debug("probe returned non-2xx")
		return false
	}
	return true
}

// Check probes and stamps the result.
func (p *Prober) Check(ctx context.Context) Result {
	ok := p.Probe(ctx)
	return Result{OK: ok, At: time.Now()}
}

// Probe is a one-shot probe of url.
func Probe(ctx context.Context, url string, timeout time.Duration) bool {
	return NewProber(url, timeout).Probe(ctx)
}
