// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package watcher turns fsnotify notifications under the monitored roots into
// reaper events.
//
// fsnotify reports a rename as Rename(old) followed by Create(new). A renamed
// file is held for a short window; a Create of a file with the same FileID in
// that window becomes Moved(old, new), otherwise the file left the tree and is
// reported as Deleted(old). Renamed directories are reported as DirMoved and
// their new location is rescanned.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/autobrr/unlinkr/internal/reaper"
	"github.com/autobrr/unlinkr/pkg/debounce"
	"github.com/autobrr/unlinkr/pkg/hardlink"
)

// Handler receives translated events.
type Handler interface {
	HandleEvent(ev reaper.Event)
}

// InodeLookup reports the last known FileID of an indexed path.
type InodeLookup interface {
	InodeOf(path string) (hardlink.FileID, bool)
}

type Config struct {
	Roots []string
	// RenameWindow is how long a rename waits for its matching create.
	RenameWindow time.Duration
	// RescanDelay batches rescans of newly created directories.
	RescanDelay time.Duration
}

const (
	defaultRenameWindow = 500 * time.Millisecond
	defaultRescanDelay  = time.Second
)

var ErrStarted = errors.New("watcher already started")

type pendingRename struct {
	id    hardlink.FileID
	timer *time.Timer
}

type Watcher struct {
	cfg     Config
	handler Handler
	lookup  InodeLookup
	log     zerolog.Logger

	fsw    *fsnotify.Watcher
	rescan *debounce.Batcher

	mu      sync.Mutex
	dirs    map[string]struct{}
	renames map[string]*pendingRename
	started bool

	done chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config, handler Handler, lookup InodeLookup, logger zerolog.Logger) *Watcher {
	if cfg.RenameWindow <= 0 {
		cfg.RenameWindow = defaultRenameWindow
	}
	if cfg.RescanDelay <= 0 {
		cfg.RescanDelay = defaultRescanDelay
	}
	return &Watcher{
		cfg:     cfg,
		handler: handler,
		lookup:  lookup,
		log:     logger.With().Str("module", "watcher").Logger(),
		dirs:    make(map[string]struct{}),
		renames: make(map[string]*pendingRename),
		done:    make(chan struct{}),
	}
}

// Start arms recursive watches on every root and begins delivering events.
// Missing roots are skipped with a warning.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrStarted
	}
	w.started = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	w.rescan = debounce.New(w.cfg.RescanDelay, w.rescanDirs)

	watched := 0
	for _, root := range w.cfg.Roots {
		root = filepath.Clean(root)
		if _, err := os.Stat(root); err != nil {
			w.log.Warn().Err(err).Str("root", root).Msg("watcher: monitored directory unavailable, skipping")
			continue
		}
		n, err := w.addTree(root)
		if err != nil {
			w.log.Warn().Err(err).Str("root", root).Msg("watcher: failed to watch directory tree")
		}
		watched += n
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Info().Int("roots", len(w.cfg.Roots)).Int("directories", watched).Msg("watcher: started")
	return nil
}

// Stop closes the fsnotify watcher and flushes held renames as deletions so
// they are reconciled before the engine shuts down.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started || w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
		close(w.done)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	w.rescan.Stop()

	w.mu.Lock()
	held := make([]string, 0, len(w.renames))
	for p, r := range w.renames {
		r.timer.Stop()
		held = append(held, p)
	}
	w.renames = make(map[string]*pendingRename)
	w.mu.Unlock()

	for _, p := range held {
		w.emit(reaper.Event{Type: reaper.EventDeleted, Path: p})
	}
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Error().Err(err).Msg("watcher: event queue overflowed, some deletions may be missed")
				continue
			}
			w.log.Warn().Err(err).Msg("watcher: fsnotify error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	p := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Create):
		w.handleCreate(p)
	case ev.Has(fsnotify.Remove):
		if w.forgetDir(p) {
			w.emit(reaper.Event{Type: reaper.EventDirDeleted, Path: p})
			return
		}
		w.emit(reaper.Event{Type: reaper.EventDeleted, Path: p})
	case ev.Has(fsnotify.Rename):
		if w.forgetDir(p) {
			w.emit(reaper.Event{Type: reaper.EventDirMoved, Path: p})
			return
		}
		w.holdRename(p)
	}
}

func (w *Watcher) handleCreate(p string) {
	info, err := os.Lstat(p)
	if err != nil {
		// Gone again before we looked.
		return
	}

	if info.IsDir() {
		if _, err := w.addTree(p); err != nil {
			w.log.Debug().Err(err).Str("dir", p).Msg("watcher: failed to watch new directory")
		}
		w.rescan.Add(p)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	id, _, err := hardlink.Stat(p)
	if err == nil {
		if src, ok := w.claimRename(id, p); ok {
			w.emit(reaper.Event{Type: reaper.EventMoved, Path: src, Dest: p})
			return
		}
	}
	w.emit(reaper.Event{Type: reaper.EventCreated, Path: p})
}

func (w *Watcher) holdRename(p string) {
	id, ok := w.lookup.InodeOf(p)
	if !ok {
		w.emit(reaper.Event{Type: reaper.EventDeleted, Path: p})
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if old, exists := w.renames[p]; exists {
		old.timer.Stop()
	}
	w.renames[p] = &pendingRename{
		id:    id,
		timer: time.AfterFunc(w.cfg.RenameWindow, func() { w.expireRename(p, id) }),
	}
}

// claimRename pairs a created file with a held rename of the same FileID.
func (w *Watcher) claimRename(id hardlink.FileID, dst string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for src, r := range w.renames {
		if r.id == id && src != dst {
			r.timer.Stop()
			delete(w.renames, src)
			return src, true
		}
	}
	return "", false
}

func (w *Watcher) expireRename(p string, id hardlink.FileID) {
	w.mu.Lock()
	r, ok := w.renames[p]
	if !ok || r.id != id {
		w.mu.Unlock()
		return
	}
	delete(w.renames, p)
	w.mu.Unlock()

	w.log.Debug().Str("path", p).Msg("watcher: file renamed out of the monitored tree")
	w.emit(reaper.Event{Type: reaper.EventDeleted, Path: p})
}

// addTree watches dir and every directory below it. It returns how many
// directories were added.
func (w *Watcher) addTree(dir string) (int, error) {
	added := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			w.log.Debug().Err(err).Str("dir", p).Msg("watcher: failed to add watch")
			return nil
		}
		w.mu.Lock()
		w.dirs[filepath.Clean(p)] = struct{}{}
		w.mu.Unlock()
		added++
		return nil
	})
	return added, err
}

// forgetDir drops dir and its descendants from the watched set and reports
// whether dir was watched.
func (w *Watcher) forgetDir(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || len(d) > len(prefix) && d[:len(prefix)] == prefix {
			delete(w.dirs, d)
			if d != dir {
				_ = w.fsw.Remove(d)
			}
		}
	}
	return true
}

// rescanDirs reports files that appeared in new directories before their
// watch was armed. Re-reporting an indexed file is harmless.
func (w *Watcher) rescanDirs(dirs []string) {
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != dir {
					_, _ = w.addTree(p)
				}
				return nil
			}
			if d.Type().IsRegular() {
				w.emit(reaper.Event{Type: reaper.EventCreated, Path: p})
			}
			return nil
		})
		if err != nil {
			w.log.Debug().Err(err).Str("dir", dir).Msg("watcher: rescan failed")
		}
	}
}

func (w *Watcher) emit(ev reaper.Event) {
	w.log.Trace().Str("type", ev.Type.String()).Str("path", ev.Path).Str("dest", ev.Dest).Msg("watcher: event")
	w.handler.HandleEvent(ev)
}

// Watched returns how many directories are currently watched.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}
