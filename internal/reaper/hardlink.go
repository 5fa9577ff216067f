// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

// HardlinkResult describes one resolved hardlink task.
type HardlinkResult struct {
	Target  string
	Aborted string // reason the cascade was cancelled; empty when it ran
	Deleted []string
	Failed  []string
	Skipped []string // excluded or changed siblings left in place
	Cleanup Cleanup
}

// HardlinkResolver deletes the remaining hardlinks of a deleted file.
type HardlinkResolver struct {
	*cascade
	index *FileIndex
}

// Resolve runs the cascade for task unless the deleted file has reappeared.
//
// The target has reappeared when it exists on disk again, or when any path
// sharing its inode was indexed after the task was enqueued. Both checks are
// needed: a downloader re-creating the file elsewhere in the tree hands it the
// same inode through a new hardlink.
func (r *HardlinkResolver) Resolve(ctx context.Context, task DeletionTask) (HardlinkResult, error) {
	res := HardlinkResult{Target: task.TargetPath}

	if _, err := os.Lstat(task.TargetPath); err == nil {
		res.Aborted = "target exists again"
		r.log.Info().Str("path", task.TargetPath).Msg("reaper: target was recreated, cancelling cascade")
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("stat target %s: %w", task.TargetPath, err)
	}

	snapshot := r.index.SnapshotByInode(task.DeletedInode)
	for _, entry := range snapshot {
		if entry.Path != task.TargetPath && entry.AddedAt.After(task.EnqueuedAt) {
			res.Aborted = "inode reappeared at " + entry.Path
			r.log.Info().
				Str("path", task.TargetPath).
				Str("sibling", entry.Path).
				Msg("reaper: inode was re-linked after deletion, cancelling cascade")
			return res, nil
		}
	}

	res.Cleanup = r.afterLocalDelete(ctx, task.TargetPath)

	for _, entry := range snapshot {
		if entry.Path == task.TargetPath {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if r.rules.Excluded(entry.Path) {
			r.log.Info().Str("path", entry.Path).Msg("reaper: sibling is excluded, keeping it")
			res.Skipped = append(res.Skipped, entry.Path)
			continue
		}

		deleted, err := r.deleteSibling(entry, task)
		if err != nil {
			r.log.Warn().Err(err).Str("path", entry.Path).Msg("reaper: failed to delete hardlink")
			res.Failed = append(res.Failed, entry.Path)
			continue
		}
		if !deleted {
			res.Skipped = append(res.Skipped, entry.Path)
			continue
		}

		r.log.Info().Str("path", entry.Path).Str("source", task.TargetPath).Msg("reaper: deleted hardlink")
		res.Deleted = append(res.Deleted, entry.Path)

		cleanup := r.afterLocalDelete(ctx, entry.Path)
		if r.opts.DeleteHistory && r.history != nil {
			cleanup.HistoryCleared = r.forgetByDestination(ctx, entry.Path) || cleanup.HistoryCleared
		}
		res.Cleanup.merge(cleanup)
	}

	return res, nil
}

// deleteSibling removes entry after re-validating it against the index and the
// disk. It returns false without error when the sibling no longer qualifies.
func (r *HardlinkResolver) deleteSibling(entry FileEntry, task DeletionTask) (bool, error) {
	current, ok := r.index.Lookup(entry.Path)
	if !ok || current.Inode != task.DeletedInode || current.AddedAt.After(task.EnqueuedAt) {
		return false, nil
	}

	id, _, err := hardlink.Stat(entry.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.index.RemoveIfMatch(entry.Path, task.DeletedInode)
			return false, nil
		}
		return false, err
	}
	if id != task.DeletedInode {
		r.log.Debug().Str("path", entry.Path).Msg("reaper: sibling now points at a different file, skipping")
		return false, nil
	}

	if err := os.Remove(entry.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.index.RemoveIfMatch(entry.Path, task.DeletedInode)
			return false, nil
		}
		return false, err
	}
	r.index.RemoveIfMatch(entry.Path, task.DeletedInode)
	return true, nil
}
