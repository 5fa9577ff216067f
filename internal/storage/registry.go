// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package storage

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps backend kinds to their implementation.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns a registry with the local backend pre-registered.
func NewRegistry() *Registry {
	return &Registry{
		backends: map[string]Backend{LocalKind: NewLocal()},
	}
}

// Register adds or replaces the backend for kind.
func (r *Registry) Register(kind string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[kind] = b
}

// Get returns the backend for kind or ErrUnknownBackend.
func (r *Registry) Get(kind string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", kind)
	}
	return b, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.backends))
	for k := range r.backends {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Close closes every backend that holds a connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for kind, b := range r.backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, errors.Wrapf(err, "close %s", kind))
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
