// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathcmp provides shared path normalization helpers used for
// cross-platform path comparisons. Remote storage paths are forward-slashed,
// so we normalize using path semantics (not filepath).
package pathcmp

import (
	"path"
	"strings"
)

// NormalizePath normalizes a file path for comparison by:
// - Converting backslashes to forward slashes
// - Removing trailing slashes (preserving Windows drive roots like C:/)
// - Cleaning the path (removing . and .. where possible)
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")

	// Handle Windows drive paths specially to preserve C:/ (path.Clean turns it into C:).
	if len(p) >= 2 && ((p[0] >= 'A' && p[0] <= 'Z') || (p[0] >= 'a' && p[0] <= 'z')) && p[1] == ':' {
		drive := p[:2]
		rest := p[2:]

		if rest == "" {
			return drive
		}

		rest = path.Clean(rest)
		if rest == "/" || rest == "." {
			return drive + "/"
		}
		return drive + rest
	}

	p = path.Clean(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// HasPathPrefix reports whether p equals prefix or lies beneath it.
// Both inputs are normalized first; "/media/tv2" is not under "/media/tv".
func HasPathPrefix(p, prefix string) bool {
	p = NormalizePath(p)
	prefix = NormalizePath(prefix)
	if p == "" || prefix == "" {
		return false
	}
	if p == prefix {
		return true
	}
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(p, prefix)
	}
	return strings.HasPrefix(p, prefix+"/")
}

// Join appends a slash-separated relative path to base and normalizes the result.
func Join(base, rel string) string {
	rel = strings.TrimPrefix(strings.ReplaceAll(rel, "\\", "/"), "/")
	if rel == "" || rel == "." {
		return NormalizePath(base)
	}
	return NormalizePath(strings.TrimSuffix(NormalizePath(base), "/") + "/" + rel)
}
