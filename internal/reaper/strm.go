// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/autobrr/unlinkr/internal/storage"
	"github.com/autobrr/unlinkr/pkg/pathcmp"
)

// BackendResolver looks up a storage backend by kind.
type BackendResolver interface {
	Get(kind string) (storage.Backend, error)
}

// StrmResult describes one resolved STRM task.
type StrmResult struct {
	Target        string
	Aborted       string
	Backend       string
	RemotePath    string // extensionless candidate
	MediaPath     string // remote media file that was found
	Deleted       bool
	DeleteFailed  bool
	LocalCleanup  Cleanup
	RemoteCleanup Cleanup
}

// StrmResolver deletes the remote media file a removed .strm placeholder pointed at.
type StrmResolver struct {
	*cascade
	backends BackendResolver
}

// Resolve maps task's placeholder to its remote media file and deletes it.
// A missing mapping, unknown backend or absent media file is a no-op.
func (r *StrmResolver) Resolve(ctx context.Context, task DeletionTask) (StrmResult, error) {
	res := StrmResult{Target: task.TargetPath}

	if _, err := os.Lstat(task.TargetPath); err == nil {
		res.Aborted = "placeholder exists again"
		r.log.Info().Str("path", task.TargetPath).Msg("reaper: strm file was recreated, skipping remote deletion")
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("stat strm %s: %w", task.TargetPath, err)
	}

	mapping, candidate, err := r.mapper.ResolveStrm(task.TargetPath)
	if err != nil {
		res.Aborted = "no mapping"
		r.log.Warn().Str("path", task.TargetPath).Msg("reaper: no strm mapping matches path")
		return res, nil
	}
	res.Backend = mapping.Backend
	res.RemotePath = candidate

	backend, err := r.backends.Get(mapping.Backend)
	if err != nil {
		res.Aborted = "unknown backend"
		r.log.Warn().Err(err).Str("backend", mapping.Backend).Str("path", task.TargetPath).Msg("reaper: storage backend not available")
		return res, nil
	}
	remote := backendFS{kind: mapping.Backend, backend: backend}

	media, found, err := r.findMedia(ctx, remote, candidate)
	if err != nil {
		res.DeleteFailed = true
		return res, fmt.Errorf("find remote media for %s: %w", candidate, err)
	}
	if !found {
		res.Aborted = "remote media not found"
		r.log.Info().Str("backend", mapping.Backend).Str("remote", candidate).Msg("reaper: no remote media file matches strm")
		return res, nil
	}
	res.MediaPath = media.Path

	ok, err := remote.Remove(ctx, media)
	switch {
	case err != nil:
		res.DeleteFailed = true
		r.log.Warn().Err(err).Str("backend", mapping.Backend).Str("remote", media.Path).Msg("reaper: failed to delete remote media file")
		return res, nil
	case !ok:
		res.DeleteFailed = true
		r.log.Warn().Str("backend", mapping.Backend).Str("remote", media.Path).Msg("reaper: remote media file disappeared before deletion")
		return res, nil
	}
	res.Deleted = true
	r.log.Info().Str("backend", mapping.Backend).Str("remote", media.Path).Str("strm", task.TargetPath).Msg("reaper: deleted remote media file")

	if r.opts.DeleteScrap {
		res.LocalCleanup = r.localStrmCleanup(ctx, task.TargetPath)

		parent := path.Dir(media.Path)
		stem := strings.TrimSuffix(media.Name, path.Ext(media.Name))
		res.RemoteCleanup.Sidecars = r.scrap.CleanSidecars(ctx, remote, parent, stem, true)
		res.RemoteCleanup.PrunedDirs = r.scrap.PruneEmptyAncestors(ctx, remote, parent, remoteStop(mapping))
	}

	if r.opts.DeleteHistory && r.history != nil {
		res.RemoteCleanup.HistoryCleared = r.forgetByDestination(ctx, media.Path)
	}

	return res, nil
}

// findMedia lists the candidate's parent and picks the media file sharing its
// base name, preferring an exact stem match.
func (r *StrmResolver) findMedia(ctx context.Context, remote backendFS, candidate string) (DirEntry, bool, error) {
	parent := path.Dir(candidate)
	base := path.Base(candidate)

	if !remote.Exists(ctx, parent) {
		return DirEntry{}, false, nil
	}
	entries, err := remote.List(ctx, parent)
	if err != nil {
		return DirEntry{}, false, err
	}

	var fallback *DirEntry
	for i := range entries {
		entry := entries[i]
		if entry.IsDir || !r.scrap.IsMedia(entry.Name) || !sharesStem(entry.Name, base) {
			continue
		}
		if strings.TrimSuffix(entry.Name, path.Ext(entry.Name)) == base {
			return entry, true, nil
		}
		if fallback == nil {
			fallback = &entries[i]
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return DirEntry{}, false, nil
}

// localStrmCleanup removes the placeholder's local sidecars and prunes the
// local directories it leaves empty.
func (r *StrmResolver) localStrmCleanup(ctx context.Context, strmPath string) Cleanup {
	dir := filepath.Dir(strmPath)
	stem := strings.TrimSuffix(filepath.Base(strmPath), filepath.Ext(strmPath))
	return Cleanup{
		Sidecars:   r.scrap.CleanSidecars(ctx, localFS{}, dir, stem, false),
		PrunedDirs: r.scrap.PruneEmptyAncestors(ctx, localFS{}, dir, r.localStop),
	}
}

// remoteStop keeps remote pruning strictly inside the mapping's remote prefix.
func remoteStop(mapping StrmMapping) func(string) bool {
	prefix := pathcmp.NormalizePath(mapping.RemotePrefix)
	return func(dir string) bool {
		dir = pathcmp.NormalizePath(dir)
		return dir == prefix || !pathcmp.HasPathPrefix(dir, prefix)
	}
}
