// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/internal/reaper"
	"github.com/autobrr/unlinkr/internal/services/notifications"
	"github.com/autobrr/unlinkr/internal/services/torrentsignal"
	"github.com/autobrr/unlinkr/internal/storage"
)

// EngineConfig converts the settings into a reaper configuration. Problems
// that have a safe fallback are logged as warnings rather than returned.
func (c *AppConfig) EngineConfig(logger zerolog.Logger) reaper.Config {
	cfg := c.Config

	mappings, rejected := reaper.ParseStrmMappings(cfg.StrmPathMappings)
	for _, line := range rejected {
		logger.Warn().Str("mapping", line).Msg("config: ignoring malformed strm path mapping")
	}

	return reaper.Config{
		HardlinkRoots:   cfg.MonitorDirs,
		StrmMappings:    mappings,
		MonitorStrm:     cfg.MonitorStrmDeletion,
		ExcludeDirs:     cfg.ExcludeDirs,
		ExcludeKeywords: cfg.ExcludeKeywords,
		Delay:           resolveDelay(cfg.DelayedDeletion, cfg.DelaySeconds, logger),
		Options: reaper.Options{
			DeleteScrap:    cfg.DeleteScrapInfos,
			DeleteHistory:  cfg.DeleteHistory,
			DeleteTorrents: cfg.DeleteTorrents,
			Notify:         cfg.Notify,
		},
		SidecarExtensions: nilIfEmpty(cfg.ScrapExtensions),
		MediaExtensions:   nilIfEmpty(cfg.MediaExtensions),
	}
}

func resolveDelay(delayed bool, raw string, logger zerolog.Logger) time.Duration {
	if !delayed {
		return 0
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().Str("delaySeconds", raw).Dur("default", reaper.DefaultDelay).Msg("config: delaySeconds is not a number, using default")
		return reaper.DefaultDelay
	}

	requested := time.Duration(seconds) * time.Second
	delay := reaper.ClampDelay(requested)
	if delay != requested {
		logger.Warn().Int("delaySeconds", seconds).Dur("using", delay).Msg("config: delaySeconds out of range")
	}
	return delay
}

// nilIfEmpty selects the built-in defaults for an empty override.
func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// NotificationTargets returns the configured targets, or nil when
// notifications are off.
func (c *AppConfig) NotificationTargets() ([]notifications.Target, error) {
	cfg := c.Config
	if !cfg.Notify {
		return nil, nil
	}

	var targets []notifications.Target
	for i, n := range cfg.Notifications {
		events, err := notifications.NormalizeEventTypes(n.Events)
		if err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("notification-%d", i+1)
		}
		url := strings.TrimSpace(n.URL)
		if err := notifications.ValidateURL(url); err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}
		targets = append(targets, notifications.Target{Name: name, URL: url, EventTypes: events})
	}
	for i, u := range cfg.NotificationURLs {
		url := strings.TrimSpace(u)
		if err := notifications.ValidateURL(url); err != nil {
			return nil, fmt.Errorf("notificationURLs[%d]: %w", i, err)
		}
		targets = append(targets, notifications.Target{Name: fmt.Sprintf("url-%d", i+1), URL: url})
	}
	return targets, nil
}

// SFTPConfigs returns one backend config per [sftp.<name>] section, sorted by
// name.
func (c *AppConfig) SFTPConfigs() []storage.SFTPConfig {
	out := make([]storage.SFTPConfig, 0, len(c.Config.SFTP))
	for _, name := range slices.Sorted(maps.Keys(c.Config.SFTP)) {
		s := c.Config.SFTP[name]
		out = append(out, storage.SFTPConfig{
			Name:           name,
			Host:           s.Host,
			Port:           s.Port,
			User:           s.User,
			Password:       s.Password,
			KeyFile:        s.KeyFile,
			KnownHostsFile: s.KnownHostsFile,
		})
	}
	return out
}

// TorrentSignalConfig reports whether torrent removal is enabled and
// configured.
func (c *AppConfig) TorrentSignalConfig() (torrentsignal.Config, bool) {
	q := c.Config.Qbittorrent
	if !c.Config.DeleteTorrents || strings.TrimSpace(q.Host) == "" {
		return torrentsignal.Config{}, false
	}
	return torrentsignal.Config{
		Host:        q.Host,
		Username:    q.Username,
		Password:    q.Password,
		BasicUser:   q.BasicUser,
		BasicPass:   q.BasicPass,
		DeleteFiles: q.DeleteFiles,
	}, true
}
