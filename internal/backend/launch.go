// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/wingedpig/winnertrade/internal/config"
)

// Launcher builds the command for one launch attempt.
//
// Commands are built without a context: the child must outlive the call
// that started it and is torn down only through Supervisor.Stop.
type Launcher interface {
	Name() string
	Command() (*exec.Cmd, error)

	// CapturesOutput reports whether the child's output is kept for
	// diagnostics. Otherwise it is discarded.
	CapturesOutput() bool
}

// PackagedLauncher runs the bundled backend executable.
type PackagedLauncher struct {
	Executable string
}

func (l *PackagedLauncher) Name() string { return "packaged" }

func (l *PackagedLauncher) CapturesOutput() bool { return false }

// Command runs the executable with its own directory as the working
// directory.
func (l *PackagedLauncher) Command() (*exec.Cmd, error) {
	if l.Executable == "" {
		return nil, fmt.Errorf("packaged launcher: no executable configured")
	}
	exe, err := filepath.Abs(l.Executable)
	if err != nil {
		return nil, fmt.Errorf("packaged launcher: %w", err)
	}
	if _, err := os.Stat(exe); err != nil {
		return nil, fmt.Errorf("packaged launcher: %w", err)
	}

	cmd := exec.Command(exe)
	cmd.Dir = filepath.Dir(exe)
	return cmd, nil
}

// DevLauncher runs the backend from source through an interpreter and ASGI
// server.
type DevLauncher struct {
	BackendDir string
	Python     string
	Module     string
	Port       int
}

func (l *DevLauncher) Name() string { return "dev" }

func (l *DevLauncher) CapturesOutput() bool { return true }

// Command runs "<python> -m uvicorn <module> --port <port>" in the backend
// directory with its src directory on PYTHONPATH.
func (l *DevLauncher) Command() (*exec.Cmd, error) {
	if l.BackendDir == "" {
		return nil, fmt.Errorf("dev launcher: no backend directory configured")
	}
	dir, err := filepath.Abs(l.BackendDir)
	if err != nil {
		return nil, fmt.Errorf("dev launcher: %w", err)
	}

	python := l.Python
	if python == "" {
		python = config.DefaultPython()
	}
	module := l.Module
	if module == "" {
		module = "api.main:app"
	}
	port := l.Port
	if port == 0 {
		port = config.DefaultPort
	}

	cmd := exec.Command(python, "-m", "uvicorn", module, "--port", strconv.Itoa(port))
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "PYTHONPATH="+filepath.Join(dir, "src"))
	return cmd, nil
}

// LauncherFromConfig selects the launch strategy for the configured mode.
func LauncherFromConfig(api config.APIConfig, cfg config.BackendConfig) (Launcher, error) {
	switch mode := cfg.ResolveMode(); mode {
	case config.ModePackaged:
		return &PackagedLauncher{Executable: cfg.Executable}, nil
	case config.ModeDev:
		return &DevLauncher{
			BackendDir: cfg.Dir,
			Python:     cfg.Python,
			Module:     cfg.Module,
			Port:       api.Port,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}
}
