// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package privacy

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DirAvailable returns a check that reports whether the store at dbPath
// could be written: the nearest existing directory on its path must be
// writable and searchable. Nothing is created; the store makes missing
// directories when it opens.
func DirAvailable(dbPath string) func() bool {
	return func() bool {
		if dbPath == "" {
			return false
		}
		dir, ok := nearestDir(filepath.Dir(dbPath))
		if !ok {
			return false
		}
		return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
	}
}
