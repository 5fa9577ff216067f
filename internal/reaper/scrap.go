// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/internal/storage"
)

// DefaultSidecarExtensions are metadata, artwork and subtitle files that
// belong to a media file with the same stem.
var DefaultSidecarExtensions = []string{
	".nfo", ".xml", ".jpg", ".jpeg", ".png", ".webp", ".tbn", ".fanart", ".gif", ".bmp",
	".srt", ".ass", ".ssa", ".sub", ".idx", ".vtt", ".sup", ".pgs", ".smi", ".rt", ".sbv",
	".csf-bk", ".csf-tmp",
}

// DefaultMediaExtensions identify the media file behind a .strm placeholder.
var DefaultMediaExtensions = []string{
	".mkv", ".mp4", ".avi", ".m4v", ".wmv", ".mov", ".ts", ".m2ts", ".vob", ".mpg", ".mpeg",
	".webm", ".flv", ".iso", ".rmvb", ".flac", ".mp3", ".wav", ".aac", ".ogg", ".m4a",
}

// folderArtwork is directory-level artwork written by media managers.
var folderArtwork = map[string]struct{}{
	"poster.jpg":   {},
	"backdrop.jpg": {},
	"fanart.jpg":   {},
	"banner.jpg":   {},
	"logo.png":     {},
}

// DirEntry is one listing result seen by the cleaner.
type DirEntry struct {
	Path  string
	Name  string
	IsDir bool
}

// ScrapFS is the filesystem surface the cleaner works through, so the same
// rules apply to local disks and storage backends.
type ScrapFS interface {
	Exists(ctx context.Context, dir string) bool
	List(ctx context.Context, dir string) ([]DirEntry, error)
	Remove(ctx context.Context, entry DirEntry) (bool, error)
	Parent(p string) string
}

// ScrapCleaner removes sidecar files and prunes directories left empty.
type ScrapCleaner struct {
	sidecar map[string]struct{}
	media   map[string]struct{}
	log     zerolog.Logger
}

// NewScrapCleaner builds a cleaner. Nil extension lists select the defaults.
func NewScrapCleaner(sidecarExts, mediaExts []string, l zerolog.Logger) *ScrapCleaner {
	if sidecarExts == nil {
		sidecarExts = DefaultSidecarExtensions
	}
	if mediaExts == nil {
		mediaExts = DefaultMediaExtensions
	}
	return &ScrapCleaner{
		sidecar: extensionSet(sidecarExts),
		media:   extensionSet(mediaExts),
		log:     l,
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// IsSidecar reports whether name has a sidecar extension.
func (c *ScrapCleaner) IsSidecar(name string) bool {
	_, ok := c.sidecar[strings.ToLower(path.Ext(name))]
	return ok
}

// IsMedia reports whether name has a media extension.
func (c *ScrapCleaner) IsMedia(name string) bool {
	_, ok := c.media[strings.ToLower(path.Ext(name))]
	return ok
}

// sharesStem reports whether name belongs to a media file with the given stem:
// "ep1.nfo", "ep1.en.srt" and "ep1-thumb.jpg" do, "ep10.nfo" does not.
func sharesStem(name, stem string) bool {
	if stem == "" || !strings.HasPrefix(name, stem) {
		return false
	}
	if len(name) == len(stem) {
		return true
	}
	switch name[len(stem)] {
	case '.', '-', '_', ' ':
		return true
	}
	return false
}

// CleanSidecars deletes the sidecars of stem inside parentDir and returns the
// deleted paths. With includeArtwork, folder-level artwork is also removed once
// no media file remains in the directory.
func (c *ScrapCleaner) CleanSidecars(ctx context.Context, fsys ScrapFS, parentDir, stem string, includeArtwork bool) []string {
	if !fsys.Exists(ctx, parentDir) {
		return nil
	}
	entries, err := fsys.List(ctx, parentDir)
	if err != nil {
		c.log.Warn().Err(err).Str("dir", parentDir).Msg("reaper: failed to list directory for sidecar cleanup")
		return nil
	}

	var (
		deleted  []string
		artwork  []DirEntry
		hasMedia bool
	)
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		if _, ok := folderArtwork[strings.ToLower(entry.Name)]; ok {
			artwork = append(artwork, entry)
			continue
		}
		if c.IsMedia(entry.Name) {
			hasMedia = true
			continue
		}
		if !c.IsSidecar(entry.Name) || !sharesStem(entry.Name, stem) {
			continue
		}
		if c.remove(ctx, fsys, entry) {
			deleted = append(deleted, entry.Path)
		}
	}

	if includeArtwork && !hasMedia {
		for _, entry := range artwork {
			if c.remove(ctx, fsys, entry) {
				deleted = append(deleted, entry.Path)
			}
		}
	}

	if len(deleted) > 0 {
		c.log.Info().Str("dir", parentDir).Int("files", len(deleted)).Msg("reaper: removed sidecar files")
	}
	return deleted
}

// PruneEmptyAncestors walks upward from start removing directories that are
// empty or hold only sidecar files. It halts at the first directory for which
// stop returns true, at a directory that no longer exists, and at the first
// directory that still holds other content.
func (c *ScrapCleaner) PruneEmptyAncestors(ctx context.Context, fsys ScrapFS, start string, stop func(dir string) bool) []string {
	var pruned []string
	dir := start
	for {
		if ctx.Err() != nil || stop(dir) || !fsys.Exists(ctx, dir) {
			return pruned
		}

		entries, err := fsys.List(ctx, dir)
		if err != nil {
			c.log.Warn().Err(err).Str("dir", dir).Msg("reaper: failed to list directory for pruning")
			return pruned
		}

		if len(entries) > 0 && c.onlySidecars(entries) {
			for _, entry := range entries {
				c.remove(ctx, fsys, entry)
			}
			entries, err = fsys.List(ctx, dir)
			if err != nil {
				return pruned
			}
		}
		if len(entries) > 0 {
			return pruned
		}

		ok, err := fsys.Remove(ctx, DirEntry{Path: dir, Name: path.Base(dir), IsDir: true})
		if err != nil || !ok {
			if err != nil {
				c.log.Warn().Err(err).Str("dir", dir).Msg("reaper: failed to remove empty directory")
			}
			return pruned
		}
		c.log.Info().Str("dir", dir).Msg("reaper: removed empty directory")
		pruned = append(pruned, dir)

		parent := fsys.Parent(dir)
		if parent == dir {
			return pruned
		}
		dir = parent
	}
}

func (c *ScrapCleaner) onlySidecars(entries []DirEntry) bool {
	for _, entry := range entries {
		if entry.IsDir || !c.IsSidecar(entry.Name) {
			return false
		}
	}
	return true
}

func (c *ScrapCleaner) remove(ctx context.Context, fsys ScrapFS, entry DirEntry) bool {
	ok, err := fsys.Remove(ctx, entry)
	if err != nil {
		c.log.Warn().Err(err).Str("path", entry.Path).Msg("reaper: failed to remove sidecar")
		return false
	}
	return ok
}

// localFS is ScrapFS over the host filesystem.
type localFS struct{}

func (localFS) Exists(_ context.Context, dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

func (localFS) List(_ context.Context, dir string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Path: filepath.Join(dir, e.Name()), Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (localFS) Remove(_ context.Context, entry DirEntry) (bool, error) {
	if err := os.Remove(entry.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (localFS) Parent(p string) string {
	return filepath.Dir(p)
}

// backendFS is ScrapFS over a storage backend.
type backendFS struct {
	kind    string
	backend storage.Backend
}

func (b backendFS) Exists(ctx context.Context, dir string) bool {
	ok, err := b.backend.Exists(ctx, storage.DirItem(b.kind, dir))
	return err == nil && ok
}

func (b backendFS) List(ctx context.Context, dir string) ([]DirEntry, error) {
	items, err := b.backend.ListFiles(ctx, storage.DirItem(b.kind, dir), false)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(items))
	for _, item := range items {
		out = append(out, DirEntry{Path: item.Path, Name: item.Name, IsDir: item.IsDir()})
	}
	return out, nil
}

func (b backendFS) Remove(ctx context.Context, entry DirEntry) (bool, error) {
	item := storage.FileItem(b.kind, entry.Path)
	if entry.IsDir {
		item = storage.DirItem(b.kind, entry.Path)
	}
	return b.backend.DeleteFile(ctx, item)
}

func (b backendFS) Parent(p string) string {
	return path.Dir(p)
}
