// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var sectionHeader = regexp.MustCompile(`(?m)^[ \t]*\[`)

// UpdateLogSettings rewrites the log keys of the config file in place and
// applies them to the loaded config.
func (c *AppConfig) UpdateLogSettings(level, path string, maxSize, maxBackups int) error {
	content, err := os.ReadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	level = strings.ToUpper(strings.TrimSpace(level))
	updated := updateLogSettingsInTOML(string(content), level, path, maxSize, maxBackups)

	info, err := os.Stat(c.configPath)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(c.configPath, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	c.Config.LogLevel = level
	c.Config.LogPath = path
	c.Config.LogMaxSize = maxSize
	c.Config.LogMaxBackups = maxBackups
	return nil
}

func updateLogSettingsInTOML(content, level, path string, maxSize, maxBackups int) string {
	content = setTOMLKey(content, "logLevel", strconv.Quote(level))
	if path != "" {
		content = setTOMLKey(content, "logPath", strconv.Quote(path))
	}
	content = setTOMLKey(content, "logMaxSize", strconv.Itoa(maxSize))
	content = setTOMLKey(content, "logMaxBackups", strconv.Itoa(maxBackups))
	return content
}

// setTOMLKey replaces the first top-level "key = ..." line, commented or not.
// A missing key is inserted before the first table so it stays top-level.
func setTOMLKey(content, key, value string) string {
	line := key + " = " + value

	top, rest := content, ""
	if loc := sectionHeader.FindStringIndex(content); loc != nil {
		top, rest = content[:loc[0]], content[loc[0]:]
	}

	re := regexp.MustCompile(`(?m)^[ \t]*#?[ \t]*` + regexp.QuoteMeta(key) + `[ \t]*=.*$`)
	if loc := re.FindStringIndex(top); loc != nil {
		return top[:loc[0]] + line + top[loc[1]:] + rest
	}

	if top != "" && !strings.HasSuffix(top, "\n") {
		top += "\n"
	}
	return top + line + "\n" + rest
}
