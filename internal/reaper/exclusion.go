// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Download clients write partial data under these suffixes. Creations are
// ignored for the full set; deletions only for the client-specific ones, since
// a removed .tmp may still be a real file the user cared about.
var (
	createIgnoredSuffixes = []string{".!qB", ".part", ".mp", ".tmp", ".temp"}
	deleteIgnoredSuffixes = []string{".!qB", ".part", ".mp"}
)

// ExclusionRules decides which paths are never touched. A path is excluded
// when it lies under one of the excluded directories or contains one of the
// keywords anywhere in its full path. Both comparisons are made in NFC.
type ExclusionRules struct {
	dirs     []string
	keywords []string
}

// NewExclusionRules builds rules from raw config values. Empty entries are dropped.
func NewExclusionRules(dirs, keywords []string) *ExclusionRules {
	r := &ExclusionRules{}
	for _, dir := range cleanPaths(dirs) {
		r.dirs = append(r.dirs, norm.NFC.String(dir))
	}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			r.keywords = append(r.keywords, norm.NFC.String(kw))
		}
	}
	return r
}

// InExcludedDir reports whether p is an excluded directory or beneath one.
func (r *ExclusionRules) InExcludedDir(p string) bool {
	if r == nil {
		return false
	}
	p = foldPath(p)
	for _, dir := range r.dirs {
		if underDir(p, dir) {
			return true
		}
	}
	return false
}

// MatchesKeyword returns the first configured keyword contained in p.
func (r *ExclusionRules) MatchesKeyword(p string) (string, bool) {
	if r == nil {
		return "", false
	}
	p = norm.NFC.String(p)
	for _, kw := range r.keywords {
		if strings.Contains(p, kw) {
			return kw, true
		}
	}
	return "", false
}

// Excluded reports whether p must never be deleted.
func (r *ExclusionRules) Excluded(p string) bool {
	if r.InExcludedDir(p) {
		return true
	}
	_, ok := r.MatchesKeyword(p)
	return ok
}

func ignoredOnCreate(p string) bool {
	return hasSuffixIn(p, createIgnoredSuffixes)
}

func ignoredOnDelete(p string) bool {
	return hasSuffixIn(p, deleteIgnoredSuffixes)
}

func hasSuffixIn(p string, suffixes []string) bool {
	ext := filepath.Ext(p)
	for _, s := range suffixes {
		if ext == s {
			return true
		}
	}
	return false
}
