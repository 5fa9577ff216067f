// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package debounce coalesces bursts of keyed submissions into a single batched flush.
package debounce

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Batcher collects keys and hands them to a flush function once no new first
// key has arrived for the configured delay. The timer starts on the first key of
// a batch and is not extended by later keys, so a steady stream still flushes.
type Batcher struct {
	submissions chan string
	timer       <-chan time.Time
	pending     map[string]struct{}
	flush       func(keys []string)
	mu          sync.RWMutex
	delay       time.Duration
	stopped     atomic.Bool
	done        chan struct{}
}

// New creates a Batcher that calls flush with the sorted, de-duplicated keys
// collected during each delay window.
func New(delay time.Duration, flush func(keys []string)) *Batcher {
	b := &Batcher{
		submissions: make(chan string, 256),
		pending:     make(map[string]struct{}),
		flush:       flush,
		delay:       delay,
		done:        make(chan struct{}),
	}

	go b.run()

	return b
}

func (b *Batcher) run() {
	defer close(b.done)

	runFlush := func() {
		b.mu.Lock()
		b.timer = nil
		keys := make([]string, 0, len(b.pending))
		for k := range b.pending {
			keys = append(keys, k)
		}
		b.pending = make(map[string]struct{})
		b.mu.Unlock()

		if len(keys) == 0 {
			return
		}
		sort.Strings(keys)
		b.flush(keys)
	}

	for {
		select {
		case <-b.timer:
			runFlush()
		case key, ok := <-b.submissions:
			if !ok {
				runFlush()
				return
			}
			b.mu.Lock()
			b.pending[key] = struct{}{}
			if b.timer == nil {
				b.timer = time.After(b.delay)
			}
			b.mu.Unlock()
		}
	}
}

// Add queues key for the next flush. After Stop the key is flushed immediately.
func (b *Batcher) Add(key string) {
	b.mu.RLock()
	if b.stopped.Load() {
		b.mu.RUnlock()
		b.flush([]string{key})
		return
	}

	select {
	case b.submissions <- key:
		b.mu.RUnlock()
	default:
		b.mu.RUnlock()
		// Buffer full; flush synchronously rather than lose the key.
		b.flush([]string{key})
	}
}

// Queued reports whether a flush is pending.
func (b *Batcher) Queued() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timer != nil
}

// Stop flushes whatever is pending and shuts down the batcher goroutine.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if !b.stopped.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return
	}
	close(b.submissions)
	b.mu.Unlock()

	<-b.done
}
