// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cleanPath is the form used for every index key and root comparison. The
// bytes are kept as they are on disk since the result is handed to stat and
// remove.
func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// foldPath is cleanPath in NFC. It is only for matching user-supplied strings
// against names, never for filesystem calls.
func foldPath(p string) string {
	return norm.NFC.String(cleanPath(p))
}

// underDir reports whether p is dir or lies beneath it, matching only at a
// separator boundary.
func underDir(p, dir string) bool {
	if p == dir {
		return true
	}
	if !strings.HasPrefix(p, dir) {
		return false
	}
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return true
	}
	return len(p) > len(dir) && p[len(dir)] == filepath.Separator
}

// cleanPaths normalizes, de-duplicates and drops empty entries.
func cleanPaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		c := cleanPath(p)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
