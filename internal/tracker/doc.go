// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracker is the public analytics facade.
//
// A tracked event flows through the privacy gate, picks up the current
// session id and host context, is appended to the event store and finally
// triggers a retention sweep queued behind the append:
//
//	gate.Allowed -> session.ID -> event.New -> store.Append -> pruner.PruneIfDue
//
// # Usage
//
//	t := tracker.New(store, gate, sess, tracker.WithLogger(log))
//	defer t.Close()
//
//	t.TrackPageView("/explore")
//	t.TrackSearch("crab nebula", 12)
//	summary := t.GetAnalyticsSummary()
//
// # Failure Semantics
//
// Nothing returns an error and nothing panics. Opt-out and unavailable
// storage are silent no-ops; invalid input, storage failures and collaborator
// panics are logged and swallowed. Reads degrade to empty results.
package tracker
