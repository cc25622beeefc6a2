// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package privacy

import (
	"os"
	"path/filepath"
)

// nearestDir returns dir, or its closest ancestor when dir does not exist
// yet. ok is false when that path exists but is not a directory.
func nearestDir(dir string) (found string, ok bool) {
	dir = filepath.Clean(dir)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			return dir, info.IsDir()
		}
		if !os.IsNotExist(err) {
			return dir, false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir, false
		}
		dir = parent
	}
}
