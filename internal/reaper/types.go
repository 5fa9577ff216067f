// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reaper reconciles deletions across hardlinked copies of media files.
//
// A deletion in a monitored tree is not acted on immediately. It is recorded as
// a DeletionTask and, after a grace period, resolved: every other path that
// shares the deleted file's inode is removed, or for .strm placeholders the
// remote media file the placeholder points at. Before acting, the resolver
// re-checks the filesystem and the index so that a file recreated during the
// grace period is never treated as deleted.
package reaper

import (
	"context"
	"time"

	"github.com/autobrr/unlinkr/pkg/hardlink"
)

// TaskKind selects the resolver for a DeletionTask.
type TaskKind int

const (
	KindHardlink TaskKind = iota
	KindStrm
)

func (k TaskKind) String() string {
	switch k {
	case KindHardlink:
		return "hardlink"
	case KindStrm:
		return "strm"
	default:
		return "unknown"
	}
}

// TaskState tracks a task through the scheduler.
type TaskState int

const (
	TaskEnqueued TaskState = iota
	TaskDraining
	TaskProcessed
)

// FileEntry is one indexed path. AddedAt is set once when the path is first
// indexed and is the basis of the recreation check.
type FileEntry struct {
	Path    string
	Inode   hardlink.FileID
	AddedAt time.Time
}

// DeletionTask is a pending deletion reconciliation.
type DeletionTask struct {
	TargetPath   string
	Kind         TaskKind
	EnqueuedAt   time.Time
	DeletedInode hardlink.FileID // zero for KindStrm

	state TaskState
}

// State returns the task's scheduler state.
func (t *DeletionTask) State() TaskState {
	return t.state
}

// EventType identifies a filesystem observation.
type EventType int

const (
	EventCreated EventType = iota
	EventMoved
	EventDeleted
	EventDirDeleted
	// EventDirMoved reports a directory renamed away; entries under it are
	// dropped from the index without any deletion cascade.
	EventDirMoved
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventMoved:
		return "moved"
	case EventDeleted:
		return "deleted"
	case EventDirDeleted:
		return "dir_deleted"
	case EventDirMoved:
		return "dir_moved"
	default:
		return "unknown"
	}
}

// Event is a filesystem observation delivered by a watcher.
type Event struct {
	Type EventType
	Path string
	Dest string // EventMoved only; empty when the destination is unknown
}

// NotificationSink delivers human-readable messages.
type NotificationSink interface {
	Send(title, text string)
}

// HistorySink forgets transfer history records. Both methods report whether a
// record was removed.
type HistorySink interface {
	DeleteBySource(ctx context.Context, src string) (bool, error)
	DeleteByDestination(ctx context.Context, dest string) (bool, error)
}

// DownloadSignal is told when a source file or directory in a monitored tree is
// gone so a download client can drop the matching torrent. Implementations must
// not block.
type DownloadSignal interface {
	DownloadFileDeleted(src string)
}

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time
