// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wingedpig/winnertrade/pkg/client"
)

// Snapshot is everything one refresh cycle fetched.
type Snapshot struct {
	Stats       client.Stats        `json:"stats"`
	Positions   []client.Position   `json:"positions"`
	Ticker      client.Ticker       `json:"ticker"`
	Symbol      string              `json:"symbol"`
	LastSignal  client.LastSignal   `json:"last_signal"`
	TradesLog   []string            `json:"trades_log"`
	SignalsLog  []string            `json:"signals_log"`
	TrailingLog []string            `json:"trailing_log"`
	Engine      client.EngineStatus `json:"engine"`
	FetchedAt   time.Time           `json:"fetched_at"`
}

// LivePnL is the sum of unrealized PnL over open positions.
func (s *Snapshot) LivePnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Positions {
		total = total.Add(p.UnrealizedPnL)
	}
	return total
}
