// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import "sync/atomic"

// Stats is a point-in-time view of the engine.
type Stats struct {
	IndexedPaths  int
	IndexedInodes int
	PendingTasks  int
	Immediate     bool

	Events             int64
	TasksScheduled     int64
	TasksCompleted     int64
	TasksAborted       int64
	TasksFailed        int64
	HardlinksDeleted   int64
	HardlinksFailed    int64
	RemoteFilesDeleted int64
	SidecarsDeleted    int64
	DirsPruned         int64
}

type counters struct {
	events             atomic.Int64
	scheduled          atomic.Int64
	completed          atomic.Int64
	aborted            atomic.Int64
	failed             atomic.Int64
	hardlinksDeleted   atomic.Int64
	hardlinksFailed    atomic.Int64
	remoteFilesDeleted atomic.Int64
	sidecarsDeleted    atomic.Int64
	dirsPruned         atomic.Int64
}

// Stats returns current counters and sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		IndexedPaths:       e.index.Len(),
		IndexedInodes:      e.index.InodeCount(),
		PendingTasks:       e.scheduler.Pending(),
		Immediate:          e.scheduler.Immediate(),
		Events:             e.stats.events.Load(),
		TasksScheduled:     e.stats.scheduled.Load(),
		TasksCompleted:     e.stats.completed.Load(),
		TasksAborted:       e.stats.aborted.Load(),
		TasksFailed:        e.stats.failed.Load(),
		HardlinksDeleted:   e.stats.hardlinksDeleted.Load(),
		HardlinksFailed:    e.stats.hardlinksFailed.Load(),
		RemoteFilesDeleted: e.stats.remoteFilesDeleted.Load(),
		SidecarsDeleted:    e.stats.sidecarsDeleted.Load(),
		DirsPruned:         e.stats.dirsPruned.Load(),
	}
}

func (e *Engine) recordCleanup(c Cleanup) {
	e.stats.sidecarsDeleted.Add(int64(len(c.Sidecars)))
	e.stats.dirsPruned.Add(int64(len(c.PrunedDirs)))
}

func (e *Engine) recordHardlink(res HardlinkResult, err error) {
	switch {
	case err != nil:
		e.stats.failed.Add(1)
	case res.Aborted != "":
		e.stats.aborted.Add(1)
	default:
		e.stats.completed.Add(1)
	}
	e.stats.hardlinksDeleted.Add(int64(len(res.Deleted)))
	e.stats.hardlinksFailed.Add(int64(len(res.Failed)))
	e.recordCleanup(res.Cleanup)
}

func (e *Engine) recordStrm(res StrmResult, err error) {
	switch {
	case err != nil || res.DeleteFailed:
		e.stats.failed.Add(1)
	case res.Aborted != "":
		e.stats.aborted.Add(1)
	default:
		e.stats.completed.Add(1)
	}
	if res.Deleted {
		e.stats.remoteFilesDeleted.Add(1)
	}
	e.recordCleanup(res.LocalCleanup)
	e.recordCleanup(res.RemoteCleanup)
}
