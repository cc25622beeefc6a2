// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnavailable means the persistence primitive could not be used
	// (open failed, quota exhausted, restricted mode).
	ErrUnavailable   = errors.New("event store unavailable")
	ErrQueueFull     = errors.New("write queue full")
	ErrClosed        = errors.New("event store closed")
	ErrSchemaVersion = errors.New("unsupported schema version")
)

// TrackingError is the error type for every failed store operation.
type TrackingError struct {
	Op  string
	Err error
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *TrackingError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a queued write.
type Result struct {
	// ID is the id assigned by an append.
	ID int64
	// Affected is the number of rows removed by a delete or clear.
	Affected int
	Err      error
}
