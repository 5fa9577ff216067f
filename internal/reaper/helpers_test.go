// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMessage struct {
	title string
	text  string
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (f *fakeNotifier) Send(title, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{title: title, text: text})
}

func (f *fakeNotifier) all() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

type fakeHistory struct {
	mu           sync.Mutex
	bySource     map[string]bool
	byDest       map[string]bool
	deletedSrc   []string
	deletedDests []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{bySource: map[string]bool{}, byDest: map[string]bool{}}
}

func (f *fakeHistory) DeleteBySource(_ context.Context, src string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bySource[src] {
		return false, nil
	}
	delete(f.bySource, src)
	f.deletedSrc = append(f.deletedSrc, src)
	return true, nil
}

func (f *fakeHistory) DeleteByDestination(_ context.Context, dest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.byDest[dest] {
		return false, nil
	}
	delete(f.byDest, dest)
	f.deletedDests = append(f.deletedDests, dest)
	return true, nil
}

type fakeSignal struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeSignal) DownloadFileDeleted(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, src)
}

func (f *fakeSignal) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func writeFile(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("media"), 0o644))
}

func linkFile(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.Link(src, dst))
}

func fileID(t *testing.T, p string) hardlink.FileID {
	t.Helper()
	id, _, err := hardlink.Stat(p)
	require.NoError(t, err)
	return id
}

func assertExists(t *testing.T, p string, msgAndArgs ...any) {
	t.Helper()
	if len(msgAndArgs) == 0 {
		msgAndArgs = []any{"expected %s to exist", p}
	}
	_, err := os.Lstat(p)
	require.NoError(t, err, msgAndArgs...)
}

func assertMissing(t *testing.T, p string, msgAndArgs ...any) {
	t.Helper()
	if len(msgAndArgs) == 0 {
		msgAndArgs = []any{"expected %s to be gone", p}
	}
	_, err := os.Lstat(p)
	require.ErrorIs(t, err, os.ErrNotExist, msgAndArgs...)
}

func mkdirAll(p string) error {
	return os.MkdirAll(p, 0o755)
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
