// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/unlinkr/internal/reaper"
	"github.com/autobrr/unlinkr/internal/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestDatabasePathConfiguration(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		envVars        map[string]string
		expectedDBPath string
		description    string
	}{
		{
			name:           "default_behavior_db_next_to_config",
			content:        `logLevel = "INFO"`,
			expectedDBPath: "unlinkr.db",
			description:    "Database should be created next to config file when not explicitly configured",
		},
		{
			name:           "explicit_path_in_config",
			content:        "logLevel = \"INFO\"\ndatabasePath = \"/data/custom.db\"\n",
			expectedDBPath: "/data/custom.db",
			description:    "Database path should use explicitly configured path from config file",
		},
		{
			name:           "explicit_path_via_env_var",
			content:        `logLevel = "INFO"`,
			envVars:        map[string]string{"UNLINKR__DATABASE_PATH": "/var/db/unlinkr/unlinkr.db"},
			expectedDBPath: "/var/db/unlinkr/unlinkr.db",
			description:    "Database path should use environment variable when set",
		},
		{
			name:           "env_var_overrides_config",
			content:        "logLevel = \"INFO\"\ndatabasePath = \"/original/path.db\"\n",
			envVars:        map[string]string{"UNLINKR__DATABASE_PATH": "/override/path.db"},
			expectedDBPath: "/override/path.db",
			description:    "Environment variable should override config file setting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(configPath)
			require.NoError(t, err, tt.description)
			require.NotNil(t, cfg)

			dbPath := cfg.GetDatabasePath()
			if filepath.IsAbs(tt.expectedDBPath) {
				assert.Equal(t, tt.expectedDBPath, dbPath, tt.description)
			} else {
				assert.Equal(t, filepath.Join(filepath.Dir(configPath), tt.expectedDBPath), dbPath, tt.description)
			}
		})
	}
}

func TestNewWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := New(dir)
	require.NoError(t, err)

	configPath := filepath.Join(dir, "config.toml")
	assert.Equal(t, configPath, cfg.ConfigPath())
	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# config.toml - Auto-generated on first run")

	c := cfg.Config
	assert.Empty(t, c.MonitorDirs)
	assert.True(t, c.DelayedDeletion)
	assert.Equal(t, "30", c.DelaySeconds)
	assert.True(t, c.DeleteScrapInfos)
	assert.True(t, c.DeleteHistory)
	assert.False(t, c.DeleteTorrents)
	assert.Equal(t, "INFO", c.LogLevel)
	assert.Equal(t, 9074, c.MetricsPort)
}

func TestDockerEnvironmentCompatibility(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/config")
	assert.Equal(t, "/config", getDefaultConfigDir(), "Docker environment should use /config directly")

	t.Setenv("XDG_CONFIG_HOME", "/home/user/.config")
	assert.Equal(t, filepath.Join("/home/user/.config", "unlinkr"), getDefaultConfigDir())
}

func TestListSettings(t *testing.T) {
	configPath := writeConfig(t, `
monitorDirs = """
/data/downloads
# comment lines are skipped

/data/media, 4K
"""
excludeKeywords = ["sample", "keep"]
excludeDirs = "/data/downloads/manual"
`)

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/downloads", "/data/media, 4K"}, cfg.Config.MonitorDirs)
	assert.Equal(t, []string{"sample", "keep"}, cfg.Config.ExcludeKeywords)
	assert.Equal(t, []string{"/data/downloads/manual"}, cfg.Config.ExcludeDirs)
}

func TestSectionsAndEnv(t *testing.T) {
	configPath := writeConfig(t, `
deleteTorrents = true
notify = true
notificationURLs = ["generic://example.org/hook"]

[[notifications]]
name = "failures"
url = "generic://example.org/failures"
events = ["media_cleanup_failed"]

[sftp.seedbox]
host = "seedbox.example.org"
user = "media"
keyFile = "/config/id_ed25519"

[qbittorrent]
host = "http://127.0.0.1:8080"
username = "admin"
`)
	t.Setenv("UNLINKR__QBITTORRENT__PASSWORD", "from-env")

	cfg, err := New(configPath)
	require.NoError(t, err)

	targets, err := cfg.NotificationTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "failures", targets[0].Name)
	assert.Equal(t, []string{"media_cleanup_failed"}, targets[0].EventTypes)
	assert.Equal(t, "url-1", targets[1].Name)
	assert.Empty(t, targets[1].EventTypes)

	assert.Equal(t, []storage.SFTPConfig{{
		Name:    "seedbox",
		Host:    "seedbox.example.org",
		User:    "media",
		KeyFile: "/config/id_ed25519",
	}}, cfg.SFTPConfigs())

	ts, ok := cfg.TorrentSignalConfig()
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8080", ts.Host)
	assert.Equal(t, "admin", ts.Username)
	assert.Equal(t, "from-env", ts.Password)
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(writeConfig(t, `logLevel = "LOUD"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logLevel")

	cfg, err := New(writeConfig(t, "notify = true\n[[notifications]]\nurl = \"generic://x\"\nevents = [\"torrent_added\"]\n"))
	require.NoError(t, err)
	_, err = cfg.NotificationTargets()
	require.Error(t, err)

	cfg, err = New(writeConfig(t, "notify = true\nnotificationURLs = [\"nope://example.org\"]\n"))
	require.NoError(t, err)
	_, err = cfg.NotificationTargets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notificationURLs[0]")
}

func TestEngineConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	configPath := writeConfig(t, `
monitorDirs = ["/data/downloads", "/data/media"]
monitorStrmDeletion = true
strmPathMappings = ["/data/strm:seedbox:/remote/media", "/data/strm2:/mnt/media", "broken"]
delaySeconds = 5
deleteTorrents = true
`)
	cfg, err := New(configPath)
	require.NoError(t, err)

	ec := cfg.EngineConfig(logger)
	assert.Equal(t, []string{"/data/downloads", "/data/media"}, ec.HardlinkRoots)
	assert.True(t, ec.MonitorStrm)
	require.Len(t, ec.StrmMappings, 2)
	assert.Equal(t, reaper.StrmMapping{LocalPrefix: "/data/strm", Backend: "seedbox", RemotePrefix: "/remote/media"}, ec.StrmMappings[0])
	assert.Equal(t, storage.LocalKind, ec.StrmMappings[1].Backend)
	assert.Equal(t, reaper.MinDelay, ec.Delay)
	assert.True(t, ec.DeleteTorrents)
	assert.True(t, ec.DeleteScrap)
	assert.Nil(t, ec.SidecarExtensions)

	assert.Contains(t, buf.String(), "malformed strm path mapping")
	assert.Contains(t, buf.String(), "delaySeconds out of range")

	// Torrent removal without a client is not configured.
	_, ok := cfg.TorrentSignalConfig()
	assert.False(t, ok)
}

func TestResolveDelay(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		delayed bool
		raw     string
		want    time.Duration
	}{
		{name: "immediate mode", delayed: false, raw: "30", want: 0},
		{name: "in range", delayed: true, raw: "45", want: 45 * time.Second},
		{name: "too short", delayed: true, raw: "1", want: reaper.MinDelay},
		{name: "too long", delayed: true, raw: "3600", want: reaper.MaxDelay},
		{name: "zero selects default", delayed: true, raw: "0", want: reaper.DefaultDelay},
		{name: "not a number", delayed: true, raw: "soon", want: reaper.DefaultDelay},
		{name: "whitespace", delayed: true, raw: " 60 ", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveDelay(tt.delayed, tt.raw, logger))
		})
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "DELAY_SECONDS", envName("delaySeconds"))
	assert.Equal(t, "NOTIFICATION_URLS", envName("notificationURLs"))
	assert.Equal(t, "METRICS_BASIC_AUTH_USERS", envName("metricsBasicAuthUsers"))
	assert.Equal(t, "NOTIFY", envName("notify"))
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var out bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "log", "unlinkr.log")
	logger, closer := setupLogging("WARN", logPath, 1, 1, &out)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("reaper: shown")
	require.NoError(t, closer.Close())

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "reaper: shown")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reaper: shown")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
