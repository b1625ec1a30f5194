// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "github.com/shopspring/decimal"

// HealthStatus is the liveness endpoint payload.
type HealthStatus struct {
	Status string `json:"status"`
}

// AppConfig is the full backend configuration document.
//
// Field names follow the backend schema exactly so the document round-trips
// without loss.
type AppConfig struct {
	Exchange ExchangeConfig `json:"exchange"`
	Account  AccountConfig  `json:"account"`
	Symbols  SymbolsConfig  `json:"symbols"`
	Strategy StrategyConfig `json:"strategy"`
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`
}

// ExchangeConfig holds exchange credentials and trading mode.
//
// APISecret is returned masked by the backend once stored.
type ExchangeConfig struct {
	Name       string `json:"name"`
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Testnet    bool   `json:"testnet"`
	PaperTrade bool   `json:"paper_trade"`
}

// AccountConfig holds account risk parameters.
type AccountConfig struct {
	FixedBalance decimal.Decimal `json:"fixed_balance"`
	RiskPercent  float64         `json:"risk_percent"`
	DailyRLimit  float64         `json:"daily_r_limit"`
}

// SymbolsConfig is the symbol-selection policy.
type SymbolsConfig struct {
	AutoDetectTop10 bool     `json:"auto_detect_top_10"`
	ManualList      []string `json:"manual_list"`
}

// TrendFilterConfig configures the higher-timeframe trend filter.
type TrendFilterConfig struct {
	Timeframe  string `json:"timeframe"`
	EMAPeriod  int    `json:"ema_period"`
	MACDFast   int    `json:"macd_fast"`
	MACDSlow   int    `json:"macd_slow"`
	MACDSignal int    `json:"macd_signal"`
}

// EntryConfig configures the entry filter.
type EntryConfig struct {
	EMAPeriod    int `json:"ema_period"`
	MACDFast     int `json:"macd_fast"`
	MACDSlow     int `json:"macd_slow"`
	MACDSignal   int `json:"macd_signal"`
	RSIPeriod    int `json:"rsi_period"`
	RSIThreshold int `json:"rsi_threshold"`
}

// StopConfig configures the initial ATR stop.
type StopConfig struct {
	ATRPeriod     int     `json:"atr_period"`
	ATRMultiplier float64 `json:"atr_multiplier"`
}

// TrailingConfig configures the trailing stop.
type TrailingConfig struct {
	ATRPeriod     int     `json:"atr_period"`
	ATRMultiplier float64 `json:"atr_multiplier"`
	BreakEvenR    float64 `json:"break_even_r"`
}

// StrategyConfig groups the strategy parameters.
type StrategyConfig struct {
	Timeframe   string            `json:"timeframe"`
	TrendFilter TrendFilterConfig `json:"trend_filter"`
	Entry       EntryConfig       `json:"entry"`
	Stop        StopConfig        `json:"stop"`
	Trailing    TrailingConfig    `json:"trailing"`
}

// LoggingConfig is the backend's logging configuration. A nil LogDir means
// the backend default directory.
type LoggingConfig struct {
	Level  string  `json:"level"`
	LogDir *string `json:"log_dir"`
}

// TelegramConfig holds notification settings.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// TestConnectionResult is the outcome of a live credential check.
type TestConnectionResult struct {
	OK      bool                `json:"ok"`
	Message string              `json:"message"`
	Balance decimal.NullDecimal `json:"balance"`
}

// ConfigPath is the on-disk location of the active configuration.
type ConfigPath struct {
	ConfigPath string `json:"config_path"`
}

// Stats is the statistics snapshot.
type Stats struct {
	TotalTrades          int             `json:"total_trades"`
	Wins                 int             `json:"wins"`
	Losses               int             `json:"losses"`
	TotalPnL             decimal.Decimal `json:"total_pnl"`
	DayPnL               decimal.Decimal `json:"day_pnl"`
	WinRate              float64         `json:"win_rate"`
	AvgPnL               decimal.Decimal `json:"avg_pnl"`
	MaxWin               decimal.Decimal `json:"max_win"`
	MaxLoss              decimal.Decimal `json:"max_loss"`
	TotalR               float64         `json:"total_r"`
	DayR                 float64         `json:"day_r"`
	AvgR                 float64         `json:"avg_r"`
	MaxR                 float64         `json:"max_r"`
	MinR                 float64         `json:"min_r"`
	TotalFees            decimal.Decimal `json:"total_fees"`
	DayFees              decimal.Decimal `json:"day_fees"`
	TradingDisabledToday bool            `json:"trading_disabled_today"`
}

// Position is an open position.
type Position struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Size          float64         `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Leverage      float64         `json:"leverage"`
}

// Ticker is the latest price for a symbol.
type Ticker struct {
	Last decimal.Decimal `json:"last"`
	Bid  decimal.Decimal `json:"bid"`
	Ask  decimal.Decimal `json:"ask"`
}

// Balance is the account balance.
type Balance struct {
	Balance decimal.Decimal `json:"balance"`
}

// LastSignal is the most recent signal log entry. All fields are nil when no
// signal has been logged today.
type LastSignal struct {
	Raw       *string `json:"raw"`
	Direction *string `json:"direction"`
	Symbol    *string `json:"symbol"`
}

// EngineStatus is the engine run state. IntervalSeconds is nil when the
// engine is not running.
type EngineStatus struct {
	Running         bool `json:"running"`
	IntervalSeconds *int `json:"interval_seconds"`
}

// EngineStartResult is returned by a successful engine start.
type EngineStartResult struct {
	Status          string `json:"status"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// EngineStopResult is returned by an engine stop.
type EngineStopResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
