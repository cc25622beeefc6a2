// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !unix

package privacy

import (
	"os"
	"path/filepath"
)

// DirAvailable returns a check that reports whether the store at dbPath
// could be written, judged from the permission bits of the nearest existing
// directory on its path. Nothing is created.
func DirAvailable(dbPath string) func() bool {
	return func() bool {
		if dbPath == "" {
			return false
		}
		dir, ok := nearestDir(filepath.Dir(dbPath))
		if !ok {
			return false
		}
		info, err := os.Stat(dir)
		return err == nil && info.Mode().Perm()&0200 != 0
	}
}
