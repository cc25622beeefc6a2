// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the config and CLI packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// Display Width:
//   - StringWidth: terminal columns occupied by a string
//   - TruncateWidth: column-aware truncation with an ellipsis
//   - PadRight: fixed-width table cells
//
// # Usage
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit an observation name into a 24-column table cell
//	cell := util.PadRight(name, 24)
package util
