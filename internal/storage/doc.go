// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local, indexed analytics event store.
//
// Events live in a single SQLite table (pure Go driver, no cgo) keyed by an
// auto-incrementing id, with secondary indexes on event type, timestamp and
// session id. The database is opened lazily on first use and the schema is
// created idempotently, so reopening never loses data.
//
// # Key Types
//
//   - EventStore: the store; owns one writer goroutine
//   - Result: outcome of a queued write, delivered on a channel
//   - TrackingError: every failure, tagged with the operation that failed
//
// # Usage
//
//	store := storage.New(storage.DefaultConfig(dbPath), storage.WithLogger(log))
//	defer store.Close()
//
//	store.Append(ev) // fire-and-forget; the returned channel may be ignored
//	events, err := store.ScanAll(ctx)
//
// # Write Ordering
//
// Appends, deletions and Clear are serialized through one queue. Every scan
// first waits for the queue to drain, so a scan issued after an append by the
// same caller sees it. Nothing is ordered across processes sharing the file.
//
// A full queue drops appends and sweeps with ErrQueueFull. Clear and the
// scan barrier wait for room instead.
//
// # Failure Semantics
//
// Failures are logged and returned as *TrackingError; nothing panics out of
// this package. Telemetry must never break the host application.
package storage
