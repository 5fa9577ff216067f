// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharesStem(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ep1.nfo", true},
		{"ep1.en.srt", true},
		{"ep1-thumb.jpg", true},
		{"ep1_poster.jpg", true},
		{"ep1 - fanart.jpg", true},
		{"ep10.nfo", false},
		{"ep.nfo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sharesStem(tt.name, "ep1"), tt.name)
	}
	assert.False(t, sharesStem("anything", ""))
}

func TestScrapCleaner_CleanSidecars(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ep1.nfo", "ep1.en.srt", "ep1-thumb.jpg", "ep10.nfo", "ep2.mkv", "ep2.nfo", "poster.jpg", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name))
	}

	c := NewScrapCleaner(nil, nil, nopLogger())
	deleted := c.CleanSidecars(context.Background(), localFS{}, dir, "ep1", true)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "ep1.nfo"),
		filepath.Join(dir, "ep1.en.srt"),
		filepath.Join(dir, "ep1-thumb.jpg"),
	}, deleted)
	assertExists(t, filepath.Join(dir, "ep10.nfo"))
	assertExists(t, filepath.Join(dir, "ep2.nfo"))
	assertExists(t, filepath.Join(dir, "poster.jpg"), "artwork stays while other media remains")
	assertExists(t, filepath.Join(dir, "notes.txt"))
}

func TestScrapCleaner_ArtworkRemovedWithLastMedia(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "movie.nfo"))
	writeFile(t, filepath.Join(dir, "poster.jpg"))
	writeFile(t, filepath.Join(dir, "Fanart.JPG"))

	c := NewScrapCleaner(nil, nil, nopLogger())
	deleted := c.CleanSidecars(context.Background(), localFS{}, dir, "movie", true)
	assert.Len(t, deleted, 3)

	writeFile(t, filepath.Join(dir, "poster.jpg"))
	deleted = c.CleanSidecars(context.Background(), localFS{}, dir, "movie", false)
	assert.Empty(t, deleted)
}

func TestScrapCleaner_PruneRespectsBoundary(t *testing.T) {
	root := t.TempDir()
	media := filepath.Join(root, "media")
	season := filepath.Join(media, "show", "season1")
	writeFile(t, filepath.Join(season, "ep1.nfo"))
	writeFile(t, filepath.Join(media, "show", "tvshow.nfo"))

	m := NewPathMapper([]string{media}, nil)
	casc := &cascade{mapper: m, rules: NewExclusionRules(nil, nil)}
	c := NewScrapCleaner(nil, nil, nopLogger())

	pruned := c.PruneEmptyAncestors(context.Background(), localFS{}, season, casc.localStop)

	assert.Equal(t, []string{season, filepath.Join(media, "show")}, pruned)
	assertMissing(t, filepath.Join(media, "show"))
	assertExists(t, media)

	// Pruning that starts at the root never removes it, even when empty.
	pruned = c.PruneEmptyAncestors(context.Background(), localFS{}, media, casc.localStop)
	assert.Empty(t, pruned)
	assertExists(t, media)
}

func TestScrapCleaner_PruneStopsAtContentAndExclusions(t *testing.T) {
	root := t.TempDir()
	media := filepath.Join(root, "media")
	keep := filepath.Join(media, "keep")
	writeFile(t, filepath.Join(media, "show", "ep2.mkv"))
	require.NoError(t, mkdirAll(filepath.Join(media, "show", "season1")))
	require.NoError(t, mkdirAll(filepath.Join(keep, "empty")))

	m := NewPathMapper([]string{media}, nil)
	casc := &cascade{mapper: m, rules: NewExclusionRules([]string{keep}, nil)}
	c := NewScrapCleaner(nil, nil, nopLogger())

	pruned := c.PruneEmptyAncestors(context.Background(), localFS{}, filepath.Join(media, "show", "season1"), casc.localStop)
	assert.Equal(t, []string{filepath.Join(media, "show", "season1")}, pruned)
	assertExists(t, filepath.Join(media, "show", "ep2.mkv"))

	pruned = c.PruneEmptyAncestors(context.Background(), localFS{}, filepath.Join(keep, "empty"), casc.localStop)
	assert.Empty(t, pruned)
	assertExists(t, filepath.Join(keep, "empty"))

	// Outside every root nothing is touched.
	outside := filepath.Join(root, "outside")
	require.NoError(t, mkdirAll(outside))
	pruned = c.PruneEmptyAncestors(context.Background(), localFS{}, outside, casc.localStop)
	assert.Empty(t, pruned)
	assertExists(t, outside)
}
