// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local is a Backend over the host filesystem. It refuses to delete the
// filesystem root and never follows symlinks when listing.
type Local struct{}

var _ Backend = (*Local)(nil)

// NewLocal returns the host filesystem backend.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Exists(_ context.Context, item Item) (bool, error) {
	fi, err := os.Lstat(filepath.FromSlash(item.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat %s", item.Path)
	}
	if item.Type == TypeDir {
		return fi.IsDir(), nil
	}
	return !fi.IsDir(), nil
}

func (l *Local) ListFiles(ctx context.Context, dir Item, recursive bool) ([]Item, error) {
	if dir.Type != TypeDir {
		return nil, ErrNotDirectory
	}
	root := filepath.FromSlash(dir.Path)

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, errors.Wrapf(err, "read dir %s", dir.Path)
		}
		items := make([]Item, 0, len(entries))
		for _, entry := range entries {
			items = append(items, localItem(filepath.Join(root, entry.Name()), entry))
		}
		return items, nil
	}

	var items []Item
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		items = append(items, localItem(p, d))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", dir.Path)
	}
	return items, nil
}

func (l *Local) DeleteFile(_ context.Context, item Item) (bool, error) {
	target := filepath.Clean(filepath.FromSlash(item.Path))
	if !filepath.IsAbs(target) {
		return false, errors.Errorf("refusing to delete relative path %q", item.Path)
	}
	if filepath.Dir(target) == target {
		return false, errors.Errorf("refusing to delete filesystem root %q", item.Path)
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrapf(err, "remove %s", item.Path)
	}
	return true, nil
}

func localItem(p string, d fs.DirEntry) Item {
	slashed := filepath.ToSlash(p)
	if d.IsDir() {
		return DirItem(LocalKind, slashed)
	}
	return FileItem(LocalKind, slashed)
}
