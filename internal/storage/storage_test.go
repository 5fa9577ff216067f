// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileItem(t *testing.T) {
	item := FileItem("u115", "/media/show/Ep1.MKV")
	assert.Equal(t, "u115", item.Storage)
	assert.Equal(t, "Ep1.MKV", item.Name)
	assert.Equal(t, "mkv", item.Extension)
	assert.Equal(t, "Ep1", item.Stem())
	assert.False(t, item.IsDir())

	dir := DirItem("u115", "/media/show")
	assert.True(t, dir.IsDir())
	assert.Equal(t, "show", dir.Stem())
}

func TestLocal_ExistsListDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	show := filepath.Join(root, "show")
	require.NoError(t, os.MkdirAll(filepath.Join(show, "season1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(show, "ep1.mkv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(show, "season1", "ep2.mkv"), []byte("x"), 0o644))

	l := NewLocal()
	showSlash := filepath.ToSlash(show)

	ok, err := l.Exists(ctx, DirItem(LocalKind, showSlash))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Exists(ctx, FileItem(LocalKind, showSlash))
	require.NoError(t, err)
	assert.False(t, ok, "a directory is not an existing file")

	ok, err = l.Exists(ctx, FileItem(LocalKind, showSlash+"/missing.mkv"))
	require.NoError(t, err)
	assert.False(t, ok)

	flat, err := l.ListFiles(ctx, DirItem(LocalKind, showSlash), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ep1.mkv", "season1"}, names(flat))

	deep, err := l.ListFiles(ctx, DirItem(LocalKind, showSlash), true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ep1.mkv", "season1", "ep2.mkv"}, names(deep))

	_, err = l.ListFiles(ctx, FileItem(LocalKind, showSlash+"/ep1.mkv"), false)
	assert.ErrorIs(t, err, ErrNotDirectory)

	deleted, err := l.DeleteFile(ctx, FileItem(LocalKind, showSlash+"/ep1.mkv"))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = l.DeleteFile(ctx, FileItem(LocalKind, showSlash+"/ep1.mkv"))
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports absence")

	_, err = l.DeleteFile(ctx, DirItem(LocalKind, showSlash))
	assert.Error(t, err, "non-empty directory must not be removed")
}

func TestLocal_RefusesUnsafeTargets(t *testing.T) {
	l := NewLocal()
	_, err := l.DeleteFile(context.Background(), FileItem(LocalKind, "relative/file.mkv"))
	assert.Error(t, err)

	_, err = l.DeleteFile(context.Background(), DirItem(LocalKind, "/"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	b, err := r.Get(LocalKind)
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = r.Get("u115")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	fake := newFakeSFTPClient()
	r.Register("u115", newSFTP("u115", fake))
	assert.Equal(t, []string{LocalKind, "u115"}, r.Kinds())

	require.NoError(t, r.Close())
	assert.True(t, fake.closed)
}

func TestSFTP_Operations(t *testing.T) {
	ctx := context.Background()
	fake := newFakeSFTPClient()
	fake.addDir("/media")
	fake.addDir("/media/show")
	fake.addFile("/media/show/ep1.mkv")
	fake.addFile("/media/show/ep1.nfo")
	fake.addDir("/media/show/extras")
	fake.addFile("/media/show/extras/trailer.mp4")

	s := newSFTP("u115", fake)

	ok, err := s.Exists(ctx, FileItem("u115", "/media/show/ep1.mkv"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, FileItem("u115", "/media/show/ep2.mkv"))
	require.NoError(t, err)
	assert.False(t, ok)

	flat, err := s.ListFiles(ctx, DirItem("u115", "/media/show"), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ep1.mkv", "ep1.nfo", "extras"}, names(flat))
	for _, item := range flat {
		assert.Equal(t, "u115", item.Storage)
	}

	deep, err := s.ListFiles(ctx, DirItem("u115", "/media/show"), true)
	require.NoError(t, err)
	assert.Contains(t, names(deep), "trailer.mp4")

	deleted, err := s.DeleteFile(ctx, FileItem("u115", "/media/show/ep1.mkv"))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteFile(ctx, FileItem("u115", "/media/show/ep1.mkv"))
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.DeleteFile(ctx, DirItem("u115", "/"))
	assert.Error(t, err)
}

func TestSFTP_RetriesTransientErrors(t *testing.T) {
	fake := newFakeSFTPClient()
	fake.addFile("/media/ep1.mkv")
	fake.failNext = 2

	s := newSFTP("u115", fake)
	deleted, err := s.DeleteFile(context.Background(), FileItem("u115", "/media/ep1.mkv"))
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 3, fake.removeCalls)
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	sort.Strings(out)
	return out
}

type fakeInfo struct {
	name string
	dir  bool
}

func (f fakeInfo) Name() string { return f.name }
func (f fakeInfo) Size() int64  { return 0 }
func (f fakeInfo) Mode() fs.FileMode {
	if f.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.dir }
func (f fakeInfo) Sys() any           { return nil }

type fakeSFTPClient struct {
	mu          sync.Mutex
	entries     map[string]bool // path -> isDir
	failNext    int
	removeCalls int
	closed      bool
}

func newFakeSFTPClient() *fakeSFTPClient {
	return &fakeSFTPClient{entries: map[string]bool{"/": true}}
}

func (f *fakeSFTPClient) addDir(p string)  { f.entries[p] = true }
func (f *fakeSFTPClient) addFile(p string) { f.entries[p] = false }

func (f *fakeSFTPClient) Lstat(p string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isDir, ok := f.entries[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fakeInfo{name: filepath.Base(p), dir: isDir}, nil
}

func (f *fakeSFTPClient) ReadDir(p string) ([]os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if isDir, ok := f.entries[p]; !ok || !isDir {
		return nil, fs.ErrNotExist
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	var out []os.FileInfo
	for entry, isDir := range f.entries {
		if !strings.HasPrefix(entry, prefix) {
			continue
		}
		rest := strings.TrimPrefix(entry, prefix)
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, fakeInfo{name: rest, dir: isDir})
	}
	return out, nil
}

func (f *fakeSFTPClient) Remove(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.failNext > 0 {
		f.failNext--
		return os.ErrDeadlineExceeded
	}
	if _, ok := f.entries[p]; !ok {
		return fs.ErrNotExist
	}
	delete(f.entries, p)
	return nil
}

func (f *fakeSFTPClient) RemoveDirectory(p string) error {
	return f.Remove(p)
}

func (f *fakeSFTPClient) Close() error {
	f.closed = true
	return nil
}
