// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hardlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStat_Hardlinks(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mkv")
	b := filepath.Join(dir, "b.mkv")
	c := filepath.Join(dir, "c.mkv")

	require.NoError(t, os.WriteFile(a, []byte("payload"), 0o644))
	require.NoError(t, os.Link(a, b))
	require.NoError(t, os.WriteFile(c, []byte("payload"), 0o644))

	idA, linksA, err := Stat(a)
	require.NoError(t, err)
	idB, _, err := Stat(b)
	require.NoError(t, err)
	idC, _, err := Stat(c)
	require.NoError(t, err)

	assert.False(t, idA.IsZero())
	assert.Equal(t, idA, idB)
	assert.NotEqual(t, idA, idC)
	assert.Equal(t, uint64(2), linksA)

	same, err := Same(a, b)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = Same(a, c)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestStat_RejectsDirectories(t *testing.T) {
	_, _, err := Stat(t.TempDir())
	assert.Error(t, err)
}

func TestStat_Missing(t *testing.T) {
	_, _, err := Stat(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileID_Ordering(t *testing.T) {
	a := NewFileID(1, 10)
	b := NewFileID(1, 11)
	c := NewFileID(2, 1)

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, uint64(10), a.Inode())
	assert.True(t, FileID{}.IsZero())
	assert.NotEmpty(t, a.String())
}
