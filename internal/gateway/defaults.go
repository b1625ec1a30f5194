// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/wingedpig/winnertrade/pkg/client"
)

// Default returns the configuration offered on first-time setup.
func Default() *client.AppConfig {
	return &client.AppConfig{
		Exchange: client.ExchangeConfig{
			Name:       "binance",
			Testnet:    true,
			PaperTrade: true,
		},
		Account: client.AccountConfig{
			FixedBalance: decimal.NewFromInt(1000),
			RiskPercent:  1,
			DailyRLimit:  -3,
		},
		Symbols: client.SymbolsConfig{
			AutoDetectTop10: true,
			ManualList:      []string{"BTC/USDT"},
		},
		Strategy: client.StrategyConfig{
			Timeframe: "15m",
			TrendFilter: client.TrendFilterConfig{
				Timeframe:  "1d",
				EMAPeriod:  200,
				MACDFast:   12,
				MACDSlow:   26,
				MACDSignal: 9,
			},
			Entry: client.EntryConfig{
				EMAPeriod:    200,
				MACDFast:     12,
				MACDSlow:     26,
				MACDSignal:   9,
				RSIPeriod:    14,
				RSIThreshold: 50,
			},
			Stop:     client.StopConfig{ATRPeriod: 14, ATRMultiplier: 1.5},
			Trailing: client.TrailingConfig{ATRPeriod: 14, ATRMultiplier: 1, BreakEvenR: 1},
		},
		Logging:  client.LoggingConfig{Level: "INFO"},
		Telegram: client.TelegramConfig{},
	}
}

// NormalizeSymbols splits user input on commas and whitespace into a manual
// symbol list. Empty entries are dropped; case is kept as typed.
func NormalizeSymbols(input string) []string {
	out := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if out == nil {
		out = []string{}
	}
	return out
}
