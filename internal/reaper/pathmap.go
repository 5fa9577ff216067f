// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/autobrr/unlinkr/internal/storage"
	"github.com/autobrr/unlinkr/pkg/pathcmp"
)

// ErrNoMapping is returned when a .strm path is not under any configured mapping.
var ErrNoMapping = errors.New("no strm mapping for path")

// StrmExt is the placeholder extension handled by the STRM resolver.
const StrmExt = ".strm"

// StrmMapping maps a local placeholder tree to a directory on a storage backend.
type StrmMapping struct {
	LocalPrefix  string
	Backend      string
	RemotePrefix string
}

func (m StrmMapping) String() string {
	return fmt.Sprintf("%s:%s:%s", m.LocalPrefix, m.Backend, m.RemotePrefix)
}

// ParseStrmMappings parses one mapping per entry. The accepted forms are
// "local:backend:remote" and "local:remote" (backend "local"); only the first
// two colons split, so remote paths may contain colons. Malformed entries are
// returned in rejected and otherwise ignored.
func ParseStrmMappings(lines []string) (mappings []StrmMapping, rejected []string) {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		var m StrmMapping
		switch len(parts) {
		case 3:
			m = StrmMapping{LocalPrefix: parts[0], Backend: parts[1], RemotePrefix: parts[2]}
		case 2:
			m = StrmMapping{LocalPrefix: parts[0], Backend: storage.LocalKind, RemotePrefix: parts[1]}
		default:
			rejected = append(rejected, raw)
			continue
		}

		m.LocalPrefix = strings.TrimSpace(m.LocalPrefix)
		m.Backend = strings.TrimSpace(m.Backend)
		m.RemotePrefix = strings.TrimSpace(m.RemotePrefix)
		if m.LocalPrefix == "" || m.Backend == "" || m.RemotePrefix == "" {
			rejected = append(rejected, raw)
			continue
		}

		m.LocalPrefix = cleanPath(m.LocalPrefix)
		m.RemotePrefix = pathcmp.NormalizePath(m.RemotePrefix)
		mappings = append(mappings, m)
	}
	return mappings, rejected
}

// GroupKind is the kind of monitored tree a path belongs to.
type GroupKind int

const (
	GroupHardlink GroupKind = iota
	GroupStrm
)

func (k GroupKind) String() string {
	if k == GroupStrm {
		return "strm"
	}
	return "hardlink"
}

// Group is the monitored tree a path resolved to.
type Group struct {
	Kind    GroupKind
	Root    string
	Mapping StrmMapping // GroupStrm only
}

// PathMapper resolves local paths to their monitored tree by longest prefix.
type PathMapper struct {
	groups []Group // longest root first
	strm   []StrmMapping
}

// NewPathMapper builds a mapper from hardlink roots and STRM mappings. When a
// directory is both, the STRM mapping wins.
func NewPathMapper(hardlinkRoots []string, mappings []StrmMapping) *PathMapper {
	m := &PathMapper{}
	byRoot := make(map[string]Group)
	for _, root := range cleanPaths(hardlinkRoots) {
		byRoot[root] = Group{Kind: GroupHardlink, Root: root}
	}
	for _, mapping := range mappings {
		mapping.LocalPrefix = cleanPath(mapping.LocalPrefix)
		byRoot[mapping.LocalPrefix] = Group{Kind: GroupStrm, Root: mapping.LocalPrefix, Mapping: mapping}
		m.strm = append(m.strm, mapping)
	}
	for _, g := range byRoot {
		m.groups = append(m.groups, g)
	}
	sort.Slice(m.groups, func(i, j int) bool {
		if len(m.groups[i].Root) != len(m.groups[j].Root) {
			return len(m.groups[i].Root) > len(m.groups[j].Root)
		}
		return m.groups[i].Root < m.groups[j].Root
	})
	sort.SliceStable(m.strm, func(i, j int) bool {
		return len(m.strm[i].LocalPrefix) > len(m.strm[j].LocalPrefix)
	})
	return m
}

// Lookup returns the most specific monitored tree containing p.
func (m *PathMapper) Lookup(p string) (Group, bool) {
	p = cleanPath(p)
	for _, g := range m.groups {
		if underDir(p, g.Root) {
			return g, true
		}
	}
	return Group{}, false
}

// IsRoot reports whether dir is itself a monitored root.
func (m *PathMapper) IsRoot(dir string) bool {
	dir = cleanPath(dir)
	for _, g := range m.groups {
		if g.Root == dir {
			return true
		}
	}
	return false
}

// Roots returns every monitored root in sorted order.
func (m *PathMapper) Roots() []string {
	roots := make([]string, 0, len(m.groups))
	for _, g := range m.groups {
		roots = append(roots, g.Root)
	}
	sort.Strings(roots)
	return roots
}

// Mappings returns the configured STRM mappings, longest local prefix first.
func (m *PathMapper) Mappings() []StrmMapping {
	return append([]StrmMapping(nil), m.strm...)
}

// ResolveStrm maps a local .strm path to the extensionless remote candidate
// path: /ssd/strm/show/ep1.strm under "/ssd/strm:u115:/media" resolves to
// /media/show/ep1 on u115.
func (m *PathMapper) ResolveStrm(localPath string) (StrmMapping, string, error) {
	localPath = cleanPath(localPath)
	for _, mapping := range m.strm {
		if !underDir(localPath, mapping.LocalPrefix) || localPath == mapping.LocalPrefix {
			continue
		}
		rel, err := filepath.Rel(mapping.LocalPrefix, localPath)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(filepath.Ext(rel), StrmExt) {
			rel = rel[:len(rel)-len(StrmExt)]
		}
		return mapping, pathcmp.Join(mapping.RemotePrefix, rel), nil
	}
	return StrmMapping{}, "", fmt.Errorf("%w: %s", ErrNoMapping, localPath)
}
