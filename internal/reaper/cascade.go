// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Options toggle the follow-up actions taken after a physical deletion.
type Options struct {
	DeleteScrap    bool
	DeleteHistory  bool
	DeleteTorrents bool
	Notify         bool
}

// Cleanup is what happened around one deleted local path.
type Cleanup struct {
	Sidecars       []string
	PrunedDirs     []string
	HistoryCleared bool
	SignalSent     bool
}

func (c *Cleanup) merge(other Cleanup) {
	c.Sidecars = append(c.Sidecars, other.Sidecars...)
	c.PrunedDirs = append(c.PrunedDirs, other.PrunedDirs...)
	c.HistoryCleared = c.HistoryCleared || other.HistoryCleared
	c.SignalSent = c.SignalSent || other.SignalSent
}

// cascade performs the follow-up work shared by both resolvers.
type cascade struct {
	mapper  *PathMapper
	rules   *ExclusionRules
	scrap   *ScrapCleaner
	history HistorySink
	signal  DownloadSignal
	opts    Options
	log     zerolog.Logger
}

// afterLocalDelete cleans up around a local path that no longer exists.
func (c *cascade) afterLocalDelete(ctx context.Context, p string) Cleanup {
	var out Cleanup
	sidecar := c.scrap.IsSidecar(p)
	excluded := c.rules.Excluded(p)

	if c.opts.DeleteScrap && !sidecar && !excluded {
		dir := filepath.Dir(p)
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		out.Sidecars = c.scrap.CleanSidecars(ctx, localFS{}, dir, stem, false)
		out.PrunedDirs = c.scrap.PruneEmptyAncestors(ctx, localFS{}, dir, c.localStop)
	}

	if c.opts.DeleteHistory && c.history != nil {
		out.HistoryCleared = c.forgetBySource(ctx, p)
	}

	if c.opts.DeleteTorrents && c.signal != nil && !sidecar && !excluded {
		if g, ok := c.mapper.Lookup(p); ok && g.Kind == GroupHardlink {
			c.signal.DownloadFileDeleted(p)
			out.SignalSent = true
		}
	}
	return out
}

// localStop bounds pruning to the inside of a monitored root, never the root
// itself, and never an excluded directory.
func (c *cascade) localStop(dir string) bool {
	if _, ok := c.mapper.Lookup(dir); !ok {
		return true
	}
	return c.mapper.IsRoot(dir) || c.rules.Excluded(dir)
}

func (c *cascade) forgetBySource(ctx context.Context, src string) bool {
	ok, err := c.history.DeleteBySource(ctx, src)
	if err != nil {
		c.log.Warn().Err(err).Str("path", src).Msg("reaper: failed to delete transfer history")
		return false
	}
	if ok {
		c.log.Info().Str("path", src).Msg("reaper: deleted transfer history")
	}
	return ok
}

func (c *cascade) forgetByDestination(ctx context.Context, dest string) bool {
	ok, err := c.history.DeleteByDestination(ctx, dest)
	if err != nil {
		c.log.Warn().Err(err).Str("path", dest).Msg("reaper: failed to delete transfer history")
		return false
	}
	if ok {
		c.log.Info().Str("path", dest).Msg("reaper: deleted transfer history")
	}
	return ok
}
