// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

func TestFileIndex_InsertSnapshotRemove(t *testing.T) {
	idx := NewFileIndex()
	inode := hardlink.NewFileID(1, 1234)
	other := hardlink.NewFileID(1, 99)
	t0 := time.Unix(1000, 0)

	idx.Insert("/downloads/ep1.mkv", inode, t0)
	idx.Insert("/media/tv/ep1.mkv", inode, t0.Add(time.Second))
	idx.Insert("/media/tv/ep2.mkv", other, t0)

	snap := idx.SnapshotByInode(inode)
	require.Len(t, snap, 2)
	assert.Equal(t, "/downloads/ep1.mkv", snap[0].Path)
	assert.Equal(t, "/media/tv/ep1.mkv", snap[1].Path)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.InodeCount())

	entry, ok := idx.Remove("/downloads/ep1.mkv")
	require.True(t, ok)
	assert.Equal(t, inode, entry.Inode)

	// Removing again is a no-op.
	_, ok = idx.Remove("/downloads/ep1.mkv")
	assert.False(t, ok)
	_, ok = idx.Remove("/never/indexed.mkv")
	assert.False(t, ok)

	assert.Len(t, idx.SnapshotByInode(inode), 1)
	idx.Remove("/media/tv/ep1.mkv")
	assert.Empty(t, idx.SnapshotByInode(inode))
	assert.Equal(t, 1, idx.InodeCount(), "empty inode groups are dropped")
}

func TestFileIndex_ReinsertKeepsAddedAt(t *testing.T) {
	idx := NewFileIndex()
	inode := hardlink.NewFileID(1, 5)
	t0 := time.Unix(1000, 0)

	idx.Insert("/media/a.mkv", inode, t0)
	idx.Insert("/media/a.mkv", inode, t0.Add(time.Hour))

	entry, ok := idx.Lookup("/media/a.mkv")
	require.True(t, ok)
	assert.Equal(t, t0, entry.AddedAt)

	// A new inode at the same path is a new file.
	replaced := hardlink.NewFileID(1, 6)
	idx.Insert("/media/a.mkv", replaced, t0.Add(time.Hour))
	entry, _ = idx.Lookup("/media/a.mkv")
	assert.Equal(t, replaced, entry.Inode)
	assert.Equal(t, t0.Add(time.Hour), entry.AddedAt)
	assert.Empty(t, idx.SnapshotByInode(inode))
}

func TestFileIndex_MoveAndRemoveUnder(t *testing.T) {
	idx := NewFileIndex()
	inode := hardlink.NewFileID(1, 7)
	t0 := time.Unix(1000, 0)

	idx.Insert("/media/old/a.mkv", inode, t0)
	idx.Move("/media/old/a.mkv", "/media/new/a.mkv", inode, t0.Add(time.Minute))

	_, ok := idx.Lookup("/media/old/a.mkv")
	assert.False(t, ok)
	entry, ok := idx.Lookup("/media/new/a.mkv")
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), entry.AddedAt)

	idx.Insert("/media/new/b.mkv", hardlink.NewFileID(1, 8), t0)
	idx.Insert("/media/newer/c.mkv", hardlink.NewFileID(1, 9), t0)
	removed := idx.RemoveUnder("/media/new")
	require.Len(t, removed, 2)
	assert.Equal(t, "/media/new/a.mkv", removed[0].Path)
	assert.Equal(t, 1, idx.Len())
}

func TestFileIndex_RemoveIfMatch(t *testing.T) {
	idx := NewFileIndex()
	idx.Insert("/media/a.mkv", hardlink.NewFileID(1, 1), time.Unix(0, 0))

	assert.False(t, idx.RemoveIfMatch("/media/a.mkv", hardlink.NewFileID(1, 2)))
	assert.True(t, idx.RemoveIfMatch("/media/a.mkv", hardlink.NewFileID(1, 1)))
	assert.False(t, idx.RemoveIfMatch("/media/a.mkv", hardlink.NewFileID(1, 1)))
}

func TestFileIndex_KeepsOnDiskBytes(t *testing.T) {
	idx := NewFileIndex()
	idx.Insert("/media/Cafe\u0301.mkv", hardlink.NewFileID(1, 1), time.Unix(0, 0))
	idx.Insert("/media/Caf\u00e9.mkv", hardlink.NewFileID(1, 2), time.Unix(0, 0))

	entry, ok := idx.Lookup("/media/Cafe\u0301.mkv")
	require.True(t, ok)
	assert.Equal(t, "/media/Cafe\u0301.mkv", entry.Path)
	assert.Equal(t, hardlink.NewFileID(1, 1), entry.Inode)

	entry, ok = idx.Lookup("/media/Caf\u00e9.mkv")
	require.True(t, ok)
	assert.Equal(t, hardlink.NewFileID(1, 2), entry.Inode)
}

func TestBuildIndex(t *testing.T) {
	root := t.TempDir()
	downloads := filepath.Join(root, "downloads")
	media := filepath.Join(root, "media")

	writeFile(t, filepath.Join(downloads, "show", "ep1.mkv"))
	linkFile(t, filepath.Join(downloads, "show", "ep1.mkv"), filepath.Join(media, "tv", "ep1.mkv"))
	writeFile(t, filepath.Join(downloads, "show", "ep2.mkv.part"))
	writeFile(t, filepath.Join(downloads, "show", "ep3.sample.mkv"))
	writeFile(t, filepath.Join(media, "tv", "ep1.nfo"))

	now := time.Unix(5000, 0)
	idx, stats, err := BuildIndex(context.Background(), []string{downloads, media, filepath.Join(root, "missing")}, now, nopLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Roots)
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 3, stats.Inodes)
	assert.Equal(t, 1, stats.Skipped)
	_, ok := idx.Lookup(filepath.Join(downloads, "show", "ep3.sample.mkv"))
	assert.True(t, ok, "excluded-looking files are still indexed")

	snap := idx.SnapshotByInode(fileID(t, filepath.Join(media, "tv", "ep1.mkv")))
	require.Len(t, snap, 2)
	for _, entry := range snap {
		assert.Equal(t, now, entry.AddedAt)
	}
}
