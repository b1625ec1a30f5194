// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus used to fan out backend
// lifecycle, polling and UI state changes to hosts.
package events

import (
	"context"
	"time"
)

// Event is an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types  []string  // Event types to match (supports wildcards)
	Source string    // Filter by emitting component
	Since  time.Time // Events after this time
	Limit  int       // Maximum events to return
}

// EventBus is the pub/sub contract shared by the core components.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter.
	History(filter EventFilter) ([]Event, error)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Event types
const (
	// Backend process events
	EventBackendStarted = "backend.started"
	EventBackendReady   = "backend.ready"
	EventBackendExited  = "backend.exited"
	EventBackendStopped = "backend.stopped"

	// Dashboard polling events
	EventPollRefreshed = "poll.refreshed"
	EventPollFailed    = "poll.failed"

	// UI state machine
	EventAppStateChanged = "app.state_changed"

	// Engine run state
	EventEngineStarted = "engine.started"
	EventEngineStopped = "engine.stopped"
)

// Publish emits on bus when bus is non-nil. Components accept a nil bus.
func Publish(ctx context.Context, bus EventBus, source, typ string, payload map[string]interface{}) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, Event{Type: typ, Source: source, Payload: payload})
}
