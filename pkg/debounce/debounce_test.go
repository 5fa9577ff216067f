// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) flush(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]string(nil), keys...))
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func TestBatcher_CoalescesKeys(t *testing.T) {
	rec := &recorder{}
	b := New(50*time.Millisecond, rec.flush)
	defer b.Stop()

	b.Add("/media/b")
	b.Add("/media/a")
	b.Add("/media/b")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/media/a", "/media/b"}, rec.snapshot()[0])
}

func TestBatcher_Queued(t *testing.T) {
	rec := &recorder{}
	b := New(100*time.Millisecond, rec.flush)
	defer b.Stop()

	assert.False(t, b.Queued())

	b.Add("x")
	require.Eventually(t, b.Queued, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !b.Queued() }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestBatcher_SeparateWindows(t *testing.T) {
	rec := &recorder{}
	b := New(30*time.Millisecond, rec.flush)
	defer b.Stop()

	b.Add("first")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	b.Add("second")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	batches := rec.snapshot()
	assert.Equal(t, []string{"first"}, batches[0])
	assert.Equal(t, []string{"second"}, batches[1])
}

func TestBatcher_StopFlushesPending(t *testing.T) {
	rec := &recorder{}
	b := New(time.Hour, rec.flush)

	b.Add("pending")
	require.Eventually(t, b.Queued, time.Second, 5*time.Millisecond)

	b.Stop()
	require.Len(t, rec.snapshot(), 1)
	assert.Equal(t, []string{"pending"}, rec.snapshot()[0])

	// After stop, keys are flushed synchronously.
	b.Add("late")
	require.Len(t, rec.snapshot(), 2)
	assert.Equal(t, []string{"late"}, rec.snapshot()[1])

	// Stop is idempotent.
	b.Stop()
}
