// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/wingedpig/winnertrade/internal/config"
	"github.com/wingedpig/winnertrade/pkg/client"
)

var exchanges = map[string]bool{"binance": true, "mexc": true}

// Validate checks the configuration invariants, so a bad document is
// rejected before it is sent. Fields the backend accepts freely (timeframes,
// MACD ordering, thresholds, multipliers, log level) are left to it. It
// returns a *config.ValidationError listing every violation.
func Validate(cfg *client.AppConfig) error {
	errs := &config.ValidationError{}

	if !exchanges[cfg.Exchange.Name] {
		errs.Add("exchange.name", fmt.Sprintf("must be binance or mexc (got %q)", cfg.Exchange.Name))
	}

	if cfg.Account.FixedBalance.LessThan(decimal.Zero) {
		errs.Add("account.fixed_balance", "must not be negative")
	}
	if cfg.Account.RiskPercent <= 0 || cfg.Account.RiskPercent > 100 {
		errs.Add("account.risk_percent", "must be greater than 0 and at most 100")
	}
	if cfg.Account.DailyRLimit > 0 {
		errs.Add("account.daily_r_limit", "must be zero or negative")
	}

	for i, s := range cfg.Symbols.ManualList {
		if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			errs.Add(fmt.Sprintf("symbols.manual_list[%d]", i), "must be a non-empty symbol without spaces")
		}
	}

	validatePeriods(&cfg.Strategy, errs)

	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
			errs.Add("telegram.bot_token", "is required when telegram is enabled")
		}
		if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
			errs.Add("telegram.chat_id", "is required when telegram is enabled")
		}
	}

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// validatePeriods requires every indicator lookback to be positive.
func validatePeriods(s *client.StrategyConfig, errs *config.ValidationError) {
	periods := []struct {
		field string
		value int
	}{
		{"strategy.trend_filter.ema_period", s.TrendFilter.EMAPeriod},
		{"strategy.trend_filter.macd_fast", s.TrendFilter.MACDFast},
		{"strategy.trend_filter.macd_slow", s.TrendFilter.MACDSlow},
		{"strategy.trend_filter.macd_signal", s.TrendFilter.MACDSignal},
		{"strategy.entry.ema_period", s.Entry.EMAPeriod},
		{"strategy.entry.macd_fast", s.Entry.MACDFast},
		{"strategy.entry.macd_slow", s.Entry.MACDSlow},
		{"strategy.entry.macd_signal", s.Entry.MACDSignal},
		{"strategy.entry.rsi_period", s.Entry.RSIPeriod},
		{"strategy.stop.atr_period", s.Stop.ATRPeriod},
		{"strategy.trailing.atr_period", s.Trailing.ATRPeriod},
	}
	for _, p := range periods {
		if p.value <= 0 {
			errs.Add(p.field, "must be positive")
		}
	}
}
