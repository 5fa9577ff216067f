// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

// FileIndex maps monitored paths to their inode and keeps the reverse
// inode -> paths relation consistent with it. All access goes through one lock.
type FileIndex struct {
	mu      sync.RWMutex
	byPath  map[string]FileEntry
	byInode map[hardlink.FileID]map[string]struct{}
}

// NewFileIndex returns an empty index.
func NewFileIndex() *FileIndex {
	return &FileIndex{
		byPath:  make(map[string]FileEntry),
		byInode: make(map[hardlink.FileID]map[string]struct{}),
	}
}

// Insert adds path or replaces its inode. Re-inserting a path with the inode it
// already has keeps the original AddedAt.
func (i *FileIndex) Insert(path string, inode hardlink.FileID, now time.Time) FileEntry {
	path = cleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.insertLocked(path, inode, now)
}

func (i *FileIndex) insertLocked(path string, inode hardlink.FileID, now time.Time) FileEntry {
	if old, ok := i.byPath[path]; ok {
		if old.Inode == inode {
			return old
		}
		i.unlinkLocked(old)
	}

	entry := FileEntry{Path: path, Inode: inode, AddedAt: now}
	i.byPath[path] = entry
	paths := i.byInode[inode]
	if paths == nil {
		paths = make(map[string]struct{}, 1)
		i.byInode[inode] = paths
	}
	paths[path] = struct{}{}
	return entry
}

func (i *FileIndex) unlinkLocked(entry FileEntry) {
	delete(i.byPath, entry.Path)
	if paths := i.byInode[entry.Inode]; paths != nil {
		delete(paths, entry.Path)
		if len(paths) == 0 {
			delete(i.byInode, entry.Inode)
		}
	}
}

// Remove drops path and returns the entry it had. Removing an unknown path is a no-op.
func (i *FileIndex) Remove(path string) (FileEntry, bool) {
	path = cleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.byPath[path]
	if !ok {
		return FileEntry{}, false
	}
	i.unlinkLocked(entry)
	return entry, true
}

// RemoveIfMatch drops path only while it still maps to inode.
func (i *FileIndex) RemoveIfMatch(path string, inode hardlink.FileID) bool {
	path = cleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.byPath[path]
	if !ok || entry.Inode != inode {
		return false
	}
	i.unlinkLocked(entry)
	return true
}

// RemoveUnder drops every path at or below dir.
func (i *FileIndex) RemoveUnder(dir string) []FileEntry {
	dir = cleanPath(dir)
	i.mu.Lock()
	defer i.mu.Unlock()
	var removed []FileEntry
	for p, entry := range i.byPath {
		if underDir(p, dir) {
			removed = append(removed, entry)
		}
	}
	for _, entry := range removed {
		i.unlinkLocked(entry)
	}
	sortEntries(removed)
	return removed
}

// Move atomically re-keys src to dst. The destination gets a fresh AddedAt.
func (i *FileIndex) Move(src, dst string, inode hardlink.FileID, now time.Time) FileEntry {
	src = cleanPath(src)
	dst = cleanPath(dst)
	i.mu.Lock()
	defer i.mu.Unlock()
	if entry, ok := i.byPath[src]; ok {
		i.unlinkLocked(entry)
	}
	return i.insertLocked(dst, inode, now)
}

// Lookup returns the entry for path.
func (i *FileIndex) Lookup(path string) (FileEntry, bool) {
	path = cleanPath(path)
	i.mu.RLock()
	defer i.mu.RUnlock()
	entry, ok := i.byPath[path]
	return entry, ok
}

// SnapshotByInode returns a copy of every entry sharing inode, sorted by path.
func (i *FileIndex) SnapshotByInode(inode hardlink.FileID) []FileEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	paths := i.byInode[inode]
	out := make([]FileEntry, 0, len(paths))
	for p := range paths {
		out = append(out, i.byPath[p])
	}
	sortEntries(out)
	return out
}

// Entries returns a sorted copy of the whole index.
func (i *FileIndex) Entries() []FileEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]FileEntry, 0, len(i.byPath))
	for _, entry := range i.byPath {
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

// Len returns the number of indexed paths.
func (i *FileIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byPath)
}

// InodeCount returns the number of distinct inodes.
func (i *FileIndex) InodeCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byInode)
}

// replaceWith swaps in the contents of other. other must not be used afterwards.
func (i *FileIndex) replaceWith(other *FileIndex) {
	other.mu.Lock()
	byPath, byInode := other.byPath, other.byInode
	other.mu.Unlock()

	i.mu.Lock()
	i.byPath = byPath
	i.byInode = byInode
	i.mu.Unlock()
}

func sortEntries(entries []FileEntry) {
	sort.Slice(entries, func(a, b int) bool { return entries[a].Path < entries[b].Path })
}

// ScanStats summarizes an index rebuild.
type ScanStats struct {
	Roots      int
	Files      int
	Inodes     int
	Skipped    int
	StatErrors int
	Duration   time.Duration
}

// BuildIndex walks every root and returns a fresh index. All entries share the
// scan's timestamp. Excluded paths are indexed too; exclusion only applies when
// deciding what to delete. Partial downloads, unreadable directories, symlinks
// and files that fail to stat are skipped; missing roots are logged and ignored.
func BuildIndex(ctx context.Context, roots []string, now time.Time, l zerolog.Logger) (*FileIndex, ScanStats, error) {
	start := time.Now()
	idx := NewFileIndex()
	stats := ScanStats{}

	for _, root := range cleanPaths(roots) {
		if _, err := os.Stat(root); err != nil {
			l.Warn().Err(err).Str("root", root).Msg("reaper: monitored root is not accessible")
			continue
		}
		stats.Roots++

		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsPermission(err) || os.IsNotExist(err) {
					stats.StatErrors++
					if d != nil && d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if ignoredOnCreate(p) {
				stats.Skipped++
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				stats.StatErrors++
				return nil
			}
			id, _, err := hardlink.GetFileID(fi, p)
			if err != nil || id.IsZero() {
				stats.StatErrors++
				return nil
			}
			idx.insertLocked(cleanPath(p), id, now)
			stats.Files++
			return nil
		})
		if err != nil {
			return nil, stats, err
		}
	}

	stats.Inodes = len(idx.byInode)
	stats.Duration = time.Since(start)
	l.Debug().
		Int("roots", stats.Roots).
		Int("files", stats.Files).
		Int("inodes", stats.Inodes).
		Int("skipped", stats.Skipped).
		Int("statErrors", stats.StatErrors).
		Dur("took", stats.Duration).
		Msg("reaper: built file index")

	return idx, stats, nil
}
