// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// winnertrade-stub serves an in-memory backend API so the shell can be run
// and developed without the trading engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/wingedpig/winnertrade/internal/config"
	"github.com/wingedpig/winnertrade/internal/gateway"
	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/internal/stubbackend"
	"github.com/wingedpig/winnertrade/pkg/client"
)

func main() {
	var (
		host   string
		port   int
		demo   bool
		empty  bool
		secret string
		debug  bool
	)
	flag.StringVar(&host, "host", "127.0.0.1", "Listen host")
	flag.IntVar(&port, "port", config.DefaultPort, "Listen port")
	flag.BoolVar(&demo, "demo", true, "Seed demo positions, prices and logs")
	flag.BoolVar(&empty, "empty", false, "Start without a stored configuration (first-run setup)")
	flag.StringVar(&secret, "secret", "", "Only accept this API secret in connection tests")
	flag.BoolVar(&debug, "debug", false, "Log every request")
	flag.Parse()

	level := "info"
	if debug {
		level = "debug"
	}
	if _, err := logging.Init(logging.Config{Level: level}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The real backend sends numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	b := stubbackend.New()
	b.SetValidSecret(secret)
	if !empty {
		b.SetConfig(gateway.Default())
	}
	if demo {
		seed(b)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", host, port)
	if err := b.ListenAndServe(ctx, addr); err != nil {
		logrus.WithError(err).Fatal("stub backend failed")
	}
}

func seed(b *stubbackend.Backend) {
	d := decimal.RequireFromString

	b.SetBalance(d("1250.40"))
	b.SetTicker("BTC/USDT", client.Ticker{Last: d("64250.5"), Bid: d("64250.4"), Ask: d("64250.6")})
	b.SetTicker("ETH/USDT", client.Ticker{Last: d("3120.15"), Bid: d("3120.1"), Ask: d("3120.2")})
	b.SetPositions([]client.Position{
		{Symbol: "BTC/USDT", Side: "long", Size: 0.01, EntryPrice: d("63900"), MarkPrice: d("64250.5"), UnrealizedPnL: d("3.51"), Leverage: 5},
		{Symbol: "ETH/USDT", Side: "short", Size: 0.2, EntryPrice: d("3100"), MarkPrice: d("3120.15"), UnrealizedPnL: d("-4.03"), Leverage: 5},
	})
	b.SetStats(client.Stats{
		TotalTrades: 14,
		Wins:        8,
		Losses:      6,
		TotalPnL:    d("182.60"),
		DayPnL:      d("12.40"),
		WinRate:     57.1,
		AvgPnL:      d("13.04"),
		MaxWin:      d("61.20"),
		MaxLoss:     d("-28.75"),
		TotalR:      6.4,
		DayR:        0.8,
		AvgR:        0.46,
		MaxR:        2.9,
		MinR:        -1,
		TotalFees:   d("9.82"),
		DayFees:     d("0.74"),
	})

	now := time.Now().Format("2006-01-02 15:04:05")
	b.AppendLog(client.LogTrades,
		now+" | OPEN  BTC/USDT long  size=0.01 entry=63900 stop=63420",
		now+" | OPEN  ETH/USDT short size=0.2 entry=3100 stop=3148",
	)
	b.AppendLog(client.LogSignals,
		now+" | BTC/USDT LONG  trend=up macd=cross rsi=56.2",
		now+" | ETH/USDT SHORT trend=down macd=cross rsi=43.8",
	)
	b.AppendLog(client.LogTrailing,
		now+" | BTC/USDT stop 63420 -> 63610 (1.0R break-even armed)",
	)
}
