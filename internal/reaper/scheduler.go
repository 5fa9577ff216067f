// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	MinDelay     = 10 * time.Second
	MaxDelay     = 300 * time.Second
	DefaultDelay = 30 * time.Second

	// defaultMinRearm bounds how soon the timer re-fires for tasks that were
	// not yet due when the previous drain ran.
	defaultMinRearm = time.Second
)

// ExecuteFunc resolves one due task.
type ExecuteFunc func(ctx context.Context, task DeletionTask) error

// DeletionScheduler holds deletion tasks for a grace period and runs them in
// batches. At most one timer is armed at a time; enqueuing never resets it.
// With a zero delay every task runs synchronously inside Enqueue.
type DeletionScheduler struct {
	mu       sync.Mutex
	drainMu  sync.Mutex // held while a timer-driven drain executes tasks
	queue    []*DeletionTask
	timer    *time.Timer
	closed   bool
	delay    time.Duration
	minRearm time.Duration

	ctx   context.Context
	exec  ExecuteFunc
	clock Clock
	log   zerolog.Logger
}

// NewDeletionScheduler returns a scheduler. A zero delay selects immediate mode.
func NewDeletionScheduler(ctx context.Context, delay time.Duration, exec ExecuteFunc, clock Clock, l zerolog.Logger) *DeletionScheduler {
	if clock == nil {
		clock = time.Now
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &DeletionScheduler{
		delay:    delay,
		minRearm: defaultMinRearm,
		ctx:      ctx,
		exec:     exec,
		clock:    clock,
		log:      l,
	}
}

// Immediate reports whether tasks bypass the queue.
func (s *DeletionScheduler) Immediate() bool {
	return s.delay <= 0
}

// Enqueue schedules task. EnqueuedAt is stamped here when unset. After Shutdown
// tasks run synchronously so nothing is dropped.
func (s *DeletionScheduler) Enqueue(task DeletionTask) {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = s.clock()
	}
	task.state = TaskEnqueued

	if s.Immediate() {
		s.run(s.ctx, &task)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.run(context.Background(), &task)
		return
	}
	s.queue = append(s.queue, &task)
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.drain)
		s.log.Debug().Dur("delay", s.delay).Msg("reaper: armed deletion timer")
	}
	pending := len(s.queue)
	s.mu.Unlock()

	s.log.Info().
		Str("path", task.TargetPath).
		Str("kind", task.Kind.String()).
		Int("pending", pending).
		Msg("reaper: deletion scheduled")
}

// Pending returns the number of queued tasks.
func (s *DeletionScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Armed reports whether a drain timer is outstanding.
func (s *DeletionScheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// drain runs every task whose grace period has elapsed and re-arms for the rest.
func (s *DeletionScheduler) drain() {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	now := s.clock()
	var due []*DeletionTask
	for _, task := range s.queue {
		if task.state == TaskEnqueued && !now.Before(task.EnqueuedAt.Add(s.delay)) {
			task.state = TaskDraining
			due = append(due, task)
		}
	}
	s.mu.Unlock()

	if len(due) > 0 {
		s.log.Info().Int("tasks", len(due)).Msg("reaper: processing due deletions")
	}
	for _, task := range due {
		s.run(s.ctx, task)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.compactLocked()
	if s.closed || len(s.queue) == 0 {
		s.timer = nil
		return
	}

	next := s.queue[0].EnqueuedAt.Add(s.delay)
	for _, task := range s.queue[1:] {
		if deadline := task.EnqueuedAt.Add(s.delay); deadline.Before(next) {
			next = deadline
		}
	}
	wait := next.Sub(s.clock())
	if wait < s.minRearm {
		wait = s.minRearm
	}
	s.timer = time.AfterFunc(wait, s.drain)
	s.log.Debug().Int("pending", len(s.queue)).Dur("wait", wait).Msg("reaper: re-armed deletion timer")
}

func (s *DeletionScheduler) compactLocked() {
	kept := s.queue[:0]
	for _, task := range s.queue {
		if task.state != TaskProcessed {
			kept = append(kept, task)
		}
	}
	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = nil
	}
	s.queue = kept
}

// Shutdown cancels the timer and runs every pending task before returning,
// including any a concurrent drain was already executing.
func (s *DeletionScheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	var pending []*DeletionTask
	for _, task := range s.queue {
		if task.state == TaskEnqueued {
			task.state = TaskDraining
			pending = append(pending, task)
		}
	}
	s.mu.Unlock()

	if len(pending) > 0 {
		s.log.Info().Int("tasks", len(pending)).Msg("reaper: running pending deletions before shutdown")
	}
	for _, task := range pending {
		s.run(context.Background(), task)
	}

	// Wait out a drain that was already executing when the timer was stopped.
	s.drainMu.Lock()
	s.drainMu.Unlock() //nolint:staticcheck // barrier

	s.mu.Lock()
	s.compactLocked()
	s.timer = nil
	s.mu.Unlock()
}

// run executes one task. A task is processed even if it fails or panics.
func (s *DeletionScheduler) run(ctx context.Context, task *DeletionTask) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = s.exec(ctx, *task)
	}()

	if err != nil {
		s.log.Error().Err(err).Str("path", task.TargetPath).Str("kind", task.Kind.String()).Msg("reaper: deletion task failed")
	}

	s.mu.Lock()
	task.state = TaskProcessed
	s.mu.Unlock()
}
