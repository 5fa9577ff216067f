// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the global zerolog logger from the loaded config and
// returns it. The returned closer releases the log file, if any.
func (c *AppConfig) SetupLogging() (zerolog.Logger, io.Closer) {
	return setupLogging(c.Config.LogLevel, c.resolveLogPath(), c.Config.LogMaxSize, c.Config.LogMaxBackups, os.Stdout)
}

// resolveLogPath makes a relative logPath relative to the config file.
func (c *AppConfig) resolveLogPath() string {
	p := strings.TrimSpace(c.Config.LogPath)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.configPath), p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func setupLogging(level, path string, maxSize, maxBackups int, stdout io.Writer) (zerolog.Logger, io.Closer) {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.DateTime}
	var closer io.Closer = nopCloser{}

	if path != "" {
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		writer = zerolog.MultiLevelWriter(writer, file)
		closer = file
	}

	lvl := parseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	logger := zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "ERROR":
		return zerolog.ErrorLevel
	case "WARN":
		return zerolog.WarnLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
