// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retention enforces the fixed 30-day retention window.
//
// The Pruner is driven by ingestion: after each append the tracker asks it to
// sweep, and the sweep is queued behind that append on the store's writer.
// Retention is therefore a soft bound; an expired event lingers until the next
// tracked event triggers a sweep.
//
// # Usage
//
//	pruner := retention.NewPruner(store, log)
//	store.Append(ev)
//	pruner.PruneIfDue(time.Now())
package retention
