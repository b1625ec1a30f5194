// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// winnertrade is the desktop shell: it supervises the local backend and
// shows the trading dashboard.
package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"github.com/wingedpig/winnertrade/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

// Version is set for releases (e.g. via -ldflags "-X main.Version=0.1.0").
var Version = "0.1.0"

func main() {
	var (
		configPath  string
		showVersion bool
		debug       bool
	)
	flag.StringVar(&configPath, "config", "", "Path to settings file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to settings file (short)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("winnertrade %s\n", Version)
		os.Exit(0)
	}

	// The front end and the backend both expect plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    Version,
		Debug:      debug,
	})
	if err != nil {
		logrus.Fatalf("Failed to create app: %v", err)
	}
	logrus.Infof("Settings: %s", application.Config())

	bridge := NewBridge(application)

	err = wails.Run(&options.App{
		Title:     "WinnerTrade",
		Width:     1280,
		Height:    840,
		MinWidth:  960,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 17, G: 24, B: 39, A: 1},
		OnStartup:        bridge.Startup,
		OnDomReady:       bridge.DomReady,
		OnBeforeClose:    bridge.BeforeClose,
		OnShutdown:       bridge.Shutdown,
		Bind: []interface{}{
			bridge,
		},
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   "WinnerTrade",
				Message: "Trading engine desktop shell\nVersion " + Version,
			},
		},
	})
	if err != nil {
		logrus.Fatalf("Error starting app: %v", err)
	}
}
