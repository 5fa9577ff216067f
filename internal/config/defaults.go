// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigTemplate = `# config.toml - Auto-generated on first run

# Directories whose files have hardlinked copies elsewhere. Deleting a file in
# one of them removes every other hardlink of it in these directories.
# Either a TOML array or one path per line.
#monitorDirs = ["/data/downloads", "/data/media"]

# Directories and keywords that are never cleaned up. Files in an excluded
# directory are never removed, but deleting one still cleans up its copies
# elsewhere. A deletion of a path matching a keyword is ignored.
#excludeDirs = ["/data/downloads/manual"]
#excludeKeywords = ["sample", "keep"]

# Deleting a .strm placeholder removes the remote media file it points at.
# Format: "local:backend:remote" or "local:remote" (backend "local").
# Backends other than "local" are defined in [sftp.<name>] sections.
#monitorStrmDeletion = false
#strmPathMappings = ["/data/strm:seedbox:/remote/media"]

# Wait before acting on a deletion so files that are being replaced are kept.
# Disable to act on every deletion immediately.
# Default: true
#delayedDeletion = true

# Grace period in seconds, clamped to 10..300
# Default: 30
#delaySeconds = 30

# Remove .nfo, artwork and subtitles next to deleted media and prune
# directories that become empty.
# Default: true
#deleteScrapInfos = true

# Forget transfer history records of deleted files
# Default: true
#deleteHistory = true

# Remove qBittorrent torrents whose payload was deleted. Needs [qbittorrent].
# Default: false
#deleteTorrents = false

# Send a notification for each cleanup
# Default: false
#notify = false

# shoutrrr URLs, see https://shoutrrr.nickfedor.com/
#notificationURLs = ["discord://token@id"]

# Per-target event filters
# Events: "media_cleanup", "media_cleanup_failed", "directory_cleanup"
#[[notifications]]
#name = "failures"
#url = "telegram://token@telegram?chats=@channel"
#events = ["media_cleanup_failed"]

# Override the sidecar and media extension sets
#scrapExtensions = [".nfo", ".jpg", ".srt"]
#mediaExtensions = [".mkv", ".mp4"]

# Transfer history database
# If not defined, unlinkr.db next to this file
#databasePath = "/var/lib/unlinkr/unlinkr.db"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/unlinkr.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50

# Number of rotated log files to retain (0 keeps all)
# Default: 3
#logMaxBackups = 3

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Prometheus metrics
# Default: false
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
# Comma separated user:password pairs
#metricsBasicAuthUsers = ""

# Remote storage reachable over SFTP, referenced by name in strmPathMappings
#[sftp.seedbox]
#host = "seedbox.example.org"
#port = 22
#user = "media"
#keyFile = "/config/id_ed25519"
#knownHostsFile = "/config/known_hosts"

#[qbittorrent]
#host = "http://127.0.0.1:8080"
#username = "admin"
#password = ""
#deleteFiles = false
`

func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
