// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// winnertrade-tui is a terminal dashboard for the WinnerTrade backend. It
// supervises the backend the same way the desktop shell does.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wingedpig/winnertrade/internal/app"
)

var version = "0.1.0"

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
		fmt.Printf("winnertrade-tui %s\n", version)
		return
	}

	// The terminal belongs to the UI, so logs only go to a file.
	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
		Debug:      debug,
		QuietLog:   true,
		LogFile:    filepath.Join(os.TempDir(), "winnertrade-tui.log"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer application.Shutdown(context.Background())

	p := tea.NewProgram(newModel(application), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
