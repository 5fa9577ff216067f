// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package hardlink identifies physical files so hardlinked paths can be grouped.
package hardlink

import (
	"fmt"
	"os"
)

// Stat returns the FileID and link count of the regular file at path.
// Symlinks are not followed; a symlink or directory yields an error.
func Stat(path string) (FileID, uint64, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return FileID{}, 0, err
	}
	if !fi.Mode().IsRegular() {
		return FileID{}, 0, fmt.Errorf("not a regular file: %s", path)
	}
	return GetFileID(fi, path)
}

// Same reports whether a and b currently refer to the same physical file.
func Same(a, b string) (bool, error) {
	ida, _, err := Stat(a)
	if err != nil {
		return false, err
	}
	idb, _, err := Stat(b)
	if err != nil {
		return false, err
	}
	return ida == idb, nil
}
