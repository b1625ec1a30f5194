// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level and output.
type Config struct {
	Level      string // debug, info, warn, error
	File       string // optional rotating log file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Quiet drops console output. Used by hosts that own the terminal.
	Quiet bool
}

// Init configures the standard logrus logger and returns a closer for the
// rotating file, if one was opened.
func Init(cfg Config) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stderr)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
			Compress:   cfg.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}

	switch len(writers) {
	case 0:
		logrus.SetOutput(io.Discard)
	case 1:
		logrus.SetOutput(writers[0])
	default:
		logrus.SetOutput(io.MultiWriter(writers...))
	}
	return closer, nil
}

// Module returns a logger tagged with the given module name.
func Module(name string) *logrus.Entry {
	return logrus.WithField("module", name)
}

// RestyLogger adapts a logrus entry to the resty.Logger interface.
//
// Resty reports transport failures as errors before handing them back to the
// caller, which logs them itself, so they are demoted to debug here.
type RestyLogger struct {
	Entry *logrus.Entry
}

func (l RestyLogger) Errorf(format string, v ...interface{}) { l.Entry.Debugf(format, v...) }
func (l RestyLogger) Warnf(format string, v ...interface{})  { l.Entry.Debugf(format, v...) }
func (l RestyLogger) Debugf(format string, v ...interface{}) { l.Entry.Debugf(format, v...) }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
