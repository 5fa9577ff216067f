// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

// Config is the engine configuration after parsing and validation.
type Config struct {
	HardlinkRoots   []string
	StrmMappings    []StrmMapping
	MonitorStrm     bool
	ExcludeDirs     []string
	ExcludeKeywords []string
	// Delay is the grace period before a deletion is reconciled. Zero runs
	// every reconciliation synchronously as the event arrives.
	Delay time.Duration
	Options

	SidecarExtensions []string
	MediaExtensions   []string
}

// Deps are the engine's collaborators. Any of the sinks may be nil.
type Deps struct {
	Backends BackendResolver
	History  HistorySink
	Notifier NotificationSink
	Signal   DownloadSignal
	Clock    Clock
	Logger   zerolog.Logger
}

// Engine owns the index and the scheduler and routes watcher events to them.
type Engine struct {
	cfg       Config
	mapper    *PathMapper
	rules     *ExclusionRules
	index     *FileIndex
	scrap     *ScrapCleaner
	scheduler *DeletionScheduler
	hardlinks *HardlinkResolver
	strm      *StrmResolver
	notifier  NotificationSink
	signal    DownloadSignal
	clock     Clock
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closed    atomic.Bool
	stats     counters
}

// ErrNoRoots is returned by Start when nothing is configured to monitor.
var ErrNoRoots = errors.New("no monitored directories configured")

// New wires an engine. Start must be called before events are handled.
func New(cfg Config, deps Deps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	l := deps.Logger.With().Str("module", "reaper").Logger()

	mappings := cfg.StrmMappings
	if !cfg.MonitorStrm {
		mappings = nil
	}

	e := &Engine{
		cfg:      cfg,
		mapper:   NewPathMapper(cfg.HardlinkRoots, mappings),
		rules:    NewExclusionRules(cfg.ExcludeDirs, cfg.ExcludeKeywords),
		index:    NewFileIndex(),
		scrap:    NewScrapCleaner(cfg.SidecarExtensions, cfg.MediaExtensions, l),
		notifier: deps.Notifier,
		signal:   deps.Signal,
		clock:    clock,
		log:      l,
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	shared := &cascade{
		mapper:  e.mapper,
		rules:   e.rules,
		scrap:   e.scrap,
		history: deps.History,
		signal:  deps.Signal,
		opts:    cfg.Options,
		log:     l,
	}
	e.hardlinks = &HardlinkResolver{cascade: shared, index: e.index}
	e.strm = &StrmResolver{cascade: shared, backends: deps.Backends}
	e.scheduler = NewDeletionScheduler(e.ctx, cfg.Delay, e.execute, clock, l)
	return e
}

// ClampDelay bounds a configured grace period. Zero or negative values select
// the default.
func ClampDelay(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultDelay
	case d < MinDelay:
		return MinDelay
	case d > MaxDelay:
		return MaxDelay
	default:
		return d
	}
}

// Start builds the initial index from every monitored root.
func (e *Engine) Start(ctx context.Context) error {
	roots := e.mapper.Roots()
	if len(roots) == 0 {
		return ErrNoRoots
	}

	var startErr error
	e.startOnce.Do(func() {
		idx, stats, err := BuildIndex(ctx, roots, e.clock(), e.log)
		if err != nil {
			startErr = fmt.Errorf("build index: %w", err)
			return
		}
		e.index.replaceWith(idx)

		mode := "delayed"
		if e.scheduler.Immediate() {
			mode = "immediate"
		}
		e.log.Info().
			Strs("roots", roots).
			Int("strmMappings", len(e.mapper.Mappings())).
			Int("files", stats.Files).
			Int("inodes", stats.Inodes).
			Str("mode", mode).
			Dur("delay", e.cfg.Delay).
			Dur("took", stats.Duration).
			Msg("reaper: started")
		for _, m := range e.mapper.Mappings() {
			e.log.Info().Str("local", m.LocalPrefix).Str("backend", m.Backend).Str("remote", m.RemotePrefix).Msg("reaper: strm mapping")
		}
	})
	return startErr
}

// Shutdown stops accepting events and runs every pending deletion.
func (e *Engine) Shutdown() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.scheduler.Shutdown()
	e.cancel()
	e.log.Info().Msg("reaper: stopped")
}

// Roots returns the monitored roots.
func (e *Engine) Roots() []string {
	return e.mapper.Roots()
}

// Index exposes the live index.
func (e *Engine) Index() *FileIndex {
	return e.index
}

// InodeOf returns the indexed inode of path.
func (e *Engine) InodeOf(path string) (hardlink.FileID, bool) {
	entry, ok := e.index.Lookup(path)
	return entry.Inode, ok
}

// HandleEvent applies one watcher observation. It never blocks on I/O beyond a
// single stat unless the engine runs in immediate mode.
func (e *Engine) HandleEvent(ev Event) {
	if e.closed.Load() {
		return
	}
	e.stats.events.Add(1)

	switch ev.Type {
	case EventCreated:
		e.handleCreated(ev.Path)
	case EventMoved:
		e.handleMoved(ev.Path, ev.Dest)
	case EventDeleted:
		e.handleDeleted(ev.Path)
	case EventDirDeleted:
		e.handleDirDeleted(ev.Path)
	case EventDirMoved:
		if removed := e.index.RemoveUnder(ev.Path); len(removed) > 0 {
			e.log.Debug().Str("dir", ev.Path).Int("entries", len(removed)).Msg("reaper: directory moved away, dropped index entries")
		}
	}
}

func (e *Engine) handleCreated(p string) {
	p = cleanPath(p)
	if _, ok := e.mapper.Lookup(p); !ok {
		return
	}
	if ignoredOnCreate(p) {
		return
	}

	id, _, err := hardlink.Stat(p)
	if err != nil {
		e.log.Debug().Err(err).Str("path", p).Msg("reaper: could not stat new file")
		return
	}
	e.index.Insert(p, id, e.clock())
}

func (e *Engine) handleMoved(src, dst string) {
	src = cleanPath(src)
	if dst == "" {
		e.index.Remove(src)
		return
	}
	dst = cleanPath(dst)

	if _, inTree := e.mapper.Lookup(dst); !inTree || ignoredOnCreate(dst) {
		e.index.Remove(src)
		return
	}

	id, _, err := hardlink.Stat(dst)
	if err != nil {
		e.index.Remove(src)
		return
	}
	e.index.Move(src, dst, id, e.clock())
}

func (e *Engine) handleDeleted(p string) {
	p = cleanPath(p)
	group, ok := e.mapper.Lookup(p)
	if !ok {
		return
	}

	entry, indexed := e.index.Remove(p)
	if ignoredOnDelete(p) {
		return
	}
	// Excluded directories only protect files from being deleted. A file removed
	// from one still has its hardlinks elsewhere reconciled.
	if kw, ok := e.rules.MatchesKeyword(p); ok {
		e.log.Info().Str("path", p).Str("keyword", kw).Msg("reaper: deleted file matches an exclude keyword, ignoring")
		return
	}

	switch group.Kind {
	case GroupStrm:
		if !strings.EqualFold(filepath.Ext(p), StrmExt) {
			return
		}
		e.enqueue(DeletionTask{TargetPath: p, Kind: KindStrm})
	case GroupHardlink:
		if !indexed {
			e.log.Debug().Str("path", p).Msg("reaper: deleted file was not indexed, nothing to reconcile")
			return
		}
		e.enqueue(DeletionTask{TargetPath: p, Kind: KindHardlink, DeletedInode: entry.Inode})
	}
}

func (e *Engine) handleDirDeleted(p string) {
	p = cleanPath(p)
	group, ok := e.mapper.Lookup(p)
	if !ok || group.Kind != GroupHardlink || e.mapper.IsRoot(p) {
		return
	}
	// The download client may remove payload files, so excluded dirs apply.
	if e.cfg.DeleteTorrents && e.signal != nil && !e.rules.Excluded(p) {
		e.signal.DownloadFileDeleted(p)
		e.log.Info().Str("dir", p).Msg("reaper: directory deleted, notified download client")
	}
}

func (e *Engine) enqueue(task DeletionTask) {
	task.EnqueuedAt = e.clock()
	e.stats.scheduled.Add(1)
	e.scheduler.Enqueue(task)
}

// execute is the scheduler's callback for one due task.
func (e *Engine) execute(ctx context.Context, task DeletionTask) error {
	switch task.Kind {
	case KindHardlink:
		res, err := e.hardlinks.Resolve(ctx, task)
		e.recordHardlink(res, err)
		if err == nil {
			e.reportHardlink(res)
		}
		return err
	case KindStrm:
		res, err := e.strm.Resolve(ctx, task)
		e.recordStrm(res, err)
		e.reportStrm(res, err)
		return err
	default:
		return fmt.Errorf("unknown task kind %d", task.Kind)
	}
}
