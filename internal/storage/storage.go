// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package storage abstracts the filesystems media can live on. Backends are
// addressed by kind ("local", or a configured remote name) and operate on
// slash-separated absolute paths.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// LocalKind is the backend kind for the host filesystem.
const LocalKind = "local"

var (
	// ErrUnknownBackend is returned when no backend is registered for a kind.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrNotDirectory is returned when a listing is requested for a file item.
	ErrNotDirectory = errors.New("item is not a directory")
)

// ItemType distinguishes files from directories.
type ItemType string

const (
	TypeFile ItemType = "file"
	TypeDir  ItemType = "dir"
)

// Item describes one entry on a backend.
type Item struct {
	Storage   string
	Path      string
	Type      ItemType
	Name      string
	Extension string // lowercase, without the leading dot
}

// IsDir reports whether the item is a directory.
func (i Item) IsDir() bool {
	return i.Type == TypeDir
}

// Stem returns the name without its extension.
func (i Item) Stem() string {
	if i.Type == TypeDir || i.Extension == "" {
		return i.Name
	}
	return strings.TrimSuffix(i.Name, path.Ext(i.Name))
}

// FileItem builds a file item for p on storage kind.
func FileItem(kind, p string) Item {
	name := path.Base(p)
	return Item{
		Storage:   kind,
		Path:      p,
		Type:      TypeFile,
		Name:      name,
		Extension: strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")),
	}
}

// DirItem builds a directory item for p on storage kind.
func DirItem(kind, p string) Item {
	return Item{
		Storage: kind,
		Path:    p,
		Type:    TypeDir,
		Name:    path.Base(p),
	}
}

// Backend is the minimal operation set the reaper needs from a filesystem.
// Exists and DeleteFile return false without an error when the item is simply
// absent; errors are reserved for backend failures.
type Backend interface {
	Exists(ctx context.Context, item Item) (bool, error)
	ListFiles(ctx context.Context, dir Item, recursive bool) ([]Item, error)
	// DeleteFile removes a file, or a directory when it is empty.
	DeleteFile(ctx context.Context, item Item) (bool, error)
}
