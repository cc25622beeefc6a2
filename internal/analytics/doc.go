// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analytics derives the summary report from stored events.
//
// The summary is never maintained incrementally: every request scans the full
// event population and recomputes it. The computation is a pure function of
// that population, so two requests with no write in between produce
// byte-identical JSON.
//
// # Key Types
//
//   - Summary: page views, visitors, top-10 lists and engagement estimates
//   - Aggregator: scans a store and summarizes it
//   - Trends: per-day activity over a trailing window
//
// # Usage
//
//	agg := analytics.NewAggregator(store, log)
//	summary, err := agg.ComputeSummary(ctx)
//
// # Ranking
//
// Top-N lists are sorted by count, highest first. Equal counts keep the order
// in which their subjects were first seen in the scan, and scans are ordered
// by event id, so the ranking is deterministic.
//
// # Privacy
//
// Everything here is computed locally from the local store. Nothing is
// transmitted.
package analytics
