// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/autobrr/unlinkr/internal/buildinfo"
	"github.com/autobrr/unlinkr/internal/domain"
)

const (
	envPrefix         = "UNLINKR__"
	configFileName    = "config.toml"
	defaultDBFileName = "unlinkr.db"
)

// AppConfig is the loaded configuration plus where it came from.
type AppConfig struct {
	Config     *domain.Config
	configPath string
	viper      *viper.Viper
}

// keys lists every top-level setting that can be overridden from the
// environment. Sections are bound separately.
var keys = []string{
	"monitorDirs",
	"excludeDirs",
	"excludeKeywords",
	"strmPathMappings",
	"monitorStrmDeletion",
	"delayedDeletion",
	"delaySeconds",
	"deleteScrapInfos",
	"deleteHistory",
	"deleteTorrents",
	"notify",
	"notificationURLs",
	"scrapExtensions",
	"mediaExtensions",
	"databasePath",
	"logLevel",
	"logPath",
	"logMaxSize",
	"logMaxBackups",
	"metricsEnabled",
	"metricsHost",
	"metricsPort",
	"metricsBasicAuthUsers",
}

var qbittorrentKeys = []string{"host", "username", "password", "basicUser", "basicPass", "deleteFiles"}

// New loads configPath, writing a commented default file first when none
// exists. An empty configPath or a directory selects config.toml inside the
// default config directory.
func New(configPath string) (*AppConfig, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefaultConfig(path); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(newlineListHook())); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Version = buildinfo.Version
	cfg.LogLevel = strings.ToUpper(strings.TrimSpace(cfg.LogLevel))

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(filepath.Dir(path), defaultDBFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &AppConfig{Config: cfg, configPath: path, viper: v}, nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath == "" {
		return filepath.Join(getDefaultConfigDir(), configFileName), nil
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path %s: %w", configPath, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return filepath.Join(abs, configFileName), nil
	}
	if filepath.Ext(abs) == "" {
		return filepath.Join(abs, configFileName), nil
	}
	return abs, nil
}

// getDefaultConfigDir follows XDG_CONFIG_HOME. Containers set it to /config
// and expect the file directly inside.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if filepath.Clean(xdg) == "/config" {
			return "/config"
		}
		return filepath.Join(xdg, "unlinkr")
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "unlinkr")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitorStrmDeletion", false)
	v.SetDefault("delayedDeletion", true)
	v.SetDefault("delaySeconds", "30")
	v.SetDefault("deleteScrapInfos", true)
	v.SetDefault("deleteHistory", true)
	v.SetDefault("deleteTorrents", false)
	v.SetDefault("notify", false)
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("logMaxSize", 50)
	v.SetDefault("logMaxBackups", 3)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", 9074)
	v.SetDefault("metricsBasicAuthUsers", "")
}

func bindEnv(v *viper.Viper) error {
	for _, key := range keys {
		if err := v.BindEnv(key, envPrefix+envName(key)); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	for _, key := range qbittorrentKeys {
		if err := v.BindEnv("qbittorrent."+key, envPrefix+"QBITTORRENT__"+envName(key)); err != nil {
			return fmt.Errorf("bind env for qbittorrent.%s: %w", key, err)
		}
	}
	return nil
}

// envName maps a camelCase key to SCREAMING_SNAKE_CASE. Runs of capitals stay
// together, so notificationURLs becomes NOTIFICATION_URLS.
func envName(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// newlineListHook accepts a list setting written as one string with an entry
// per line. Commas are not separators since paths may contain them.
func newlineListHook() mapstructure.DecodeHookFuncType {
	stringSlice := reflect.TypeOf([]string(nil))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != stringSlice {
			return data, nil
		}
		raw, _ := data.(string)
		return splitLines(raw), nil
	}
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// ConfigPath is the file the configuration was read from.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

func (c *AppConfig) GetDatabasePath() string {
	return c.Config.DatabasePath
}
