// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version string `toml:"-" mapstructure:"-"`

	MonitorDirs         []string `toml:"monitorDirs" mapstructure:"monitorDirs"`
	ExcludeDirs         []string `toml:"excludeDirs" mapstructure:"excludeDirs"`
	ExcludeKeywords     []string `toml:"excludeKeywords" mapstructure:"excludeKeywords"`
	StrmPathMappings    []string `toml:"strmPathMappings" mapstructure:"strmPathMappings"`
	MonitorStrmDeletion bool     `toml:"monitorStrmDeletion" mapstructure:"monitorStrmDeletion"`

	DelayedDeletion bool `toml:"delayedDeletion" mapstructure:"delayedDeletion"`
	// DelaySeconds is kept raw so a non-numeric value can fall back to the
	// default with a warning instead of failing the whole config.
	DelaySeconds string `toml:"delaySeconds" mapstructure:"delaySeconds"`

	DeleteScrapInfos bool `toml:"deleteScrapInfos" mapstructure:"deleteScrapInfos"`
	DeleteHistory    bool `toml:"deleteHistory" mapstructure:"deleteHistory"`
	DeleteTorrents   bool `toml:"deleteTorrents" mapstructure:"deleteTorrents"`
	Notify           bool `toml:"notify" mapstructure:"notify"`

	ScrapExtensions []string `toml:"scrapExtensions" mapstructure:"scrapExtensions"`
	MediaExtensions []string `toml:"mediaExtensions" mapstructure:"mediaExtensions"`

	NotificationURLs []string             `toml:"notificationURLs" mapstructure:"notificationURLs"`
	Notifications    []NotificationTarget `toml:"notifications" mapstructure:"notifications"`

	DatabasePath  string `toml:"databasePath" mapstructure:"databasePath"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	SFTP        map[string]SFTPSection `toml:"sftp" mapstructure:"sftp"`
	Qbittorrent QbittorrentSection     `toml:"qbittorrent" mapstructure:"qbittorrent"`
}

// NotificationTarget is one [[notifications]] entry. An empty Events list
// subscribes to every event.
type NotificationTarget struct {
	Name   string   `toml:"name" mapstructure:"name"`
	URL    string   `toml:"url" mapstructure:"url"`
	Events []string `toml:"events" mapstructure:"events"`
}

// SFTPSection configures a remote storage backend named after its table.
type SFTPSection struct {
	Host           string `toml:"host" mapstructure:"host"`
	Port           int    `toml:"port" mapstructure:"port"`
	User           string `toml:"user" mapstructure:"user"`
	Password       string `toml:"password" mapstructure:"password"`
	KeyFile        string `toml:"keyFile" mapstructure:"keyFile"`
	KnownHostsFile string `toml:"knownHostsFile" mapstructure:"knownHostsFile"`
}

type QbittorrentSection struct {
	Host        string `toml:"host" mapstructure:"host"`
	Username    string `toml:"username" mapstructure:"username"`
	Password    string `toml:"password" mapstructure:"password"`
	BasicUser   string `toml:"basicUser" mapstructure:"basicUser"`
	BasicPass   string `toml:"basicPass" mapstructure:"basicPass"`
	DeleteFiles bool   `toml:"deleteFiles" mapstructure:"deleteFiles"`
}

var validLogLevels = []string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

// Validate rejects settings that cannot be used at all. Recoverable problems
// such as a bad delay are handled when the engine config is built.
func (c *Config) Validate() error {
	var errs []error

	if level := strings.ToUpper(strings.TrimSpace(c.LogLevel)); level != "" && !slices.Contains(validLogLevels, level) {
		errs = append(errs, fmt.Errorf("invalid logLevel %q: must be one of %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if c.MetricsEnabled && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		errs = append(errs, fmt.Errorf("invalid metricsPort %d", c.MetricsPort))
	}
	for _, name := range slices.Sorted(maps.Keys(c.SFTP)) {
		if name == "local" {
			errs = append(errs, errors.New("sftp section cannot be named \"local\""))
			continue
		}
		if strings.TrimSpace(c.SFTP[name].Host) == "" {
			errs = append(errs, fmt.Errorf("sftp.%s: host is required", name))
		}
	}
	for i, n := range c.Notifications {
		if strings.TrimSpace(n.URL) == "" {
			errs = append(errs, fmt.Errorf("notifications[%d]: url is required", i))
		}
	}

	errs = append(errs, c.redactedPlaceholders()...)

	return errors.Join(errs...)
}

// redactedPlaceholders catches output of Redacted pasted back as a config.
func (c *Config) redactedPlaceholders() []error {
	var errs []error
	check := func(key, value string) {
		if IsRedactedString(value) {
			errs = append(errs, fmt.Errorf("%s holds the %s placeholder instead of a secret", key, RedactedStr))
		}
	}

	check("qbittorrent.password", c.Qbittorrent.Password)
	check("qbittorrent.basicPass", c.Qbittorrent.BasicPass)
	for _, name := range slices.Sorted(maps.Keys(c.SFTP)) {
		check("sftp."+name+".password", c.SFTP[name].Password)
	}
	for i, u := range c.NotificationURLs {
		check(fmt.Sprintf("notificationURLs[%d]", i), u)
	}
	for i, n := range c.Notifications {
		check(fmt.Sprintf("notifications[%d].url", i), n.URL)
	}
	return errs
}

// Redacted returns a copy with every credential replaced by RedactedStr.
func (c Config) Redacted() Config {
	out := c
	out.MetricsBasicAuthUsers = redactBasicAuthUsers(c.MetricsBasicAuthUsers)
	out.Qbittorrent.Password = RedactString(c.Qbittorrent.Password)
	out.Qbittorrent.BasicPass = RedactString(c.Qbittorrent.BasicPass)

	if c.SFTP != nil {
		out.SFTP = make(map[string]SFTPSection, len(c.SFTP))
		for name, s := range c.SFTP {
			s.Password = RedactString(s.Password)
			out.SFTP[name] = s
		}
	}

	// shoutrrr URLs carry tokens in the userinfo and path.
	out.NotificationURLs = make([]string, len(c.NotificationURLs))
	for i, u := range c.NotificationURLs {
		out.NotificationURLs[i] = RedactString(u)
	}
	out.Notifications = make([]NotificationTarget, len(c.Notifications))
	for i, n := range c.Notifications {
		n.URL = RedactString(n.URL)
		out.Notifications[i] = n
	}
	return out
}

func redactBasicAuthUsers(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	entries := strings.Split(raw, ",")
	for i, entry := range entries {
		user, _, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if ok {
			entries[i] = user + ":" + RedactedStr
		}
	}
	return strings.Join(entries, ",")
}
