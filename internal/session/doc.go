// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the per-visit session identifier.
//
// A visit is one continuous tab/window lifetime. Its identifier lives in
// tab-scoped volatile storage, separate from the durable event store, so two
// tabs open at the same time are two sessions even though they write into the
// same database.
//
// # Key Types
//
//   - Context: owns the session token for one visit
//   - VolatileStore: tab-scoped key/value storage the token is kept in
//   - MemoryStore: in-process VolatileStore
//
// # Usage
//
// Construct one Context per visit and hand it to the tracker:
//
//	sess := session.NewContext(session.NewMemoryStore(), session.WithLogger(log))
//	id := sess.ID() // generated lazily, stable for the visit
//
// Tests inject a fixed identifier:
//
//	sess := session.NewContext(nil, session.WithID("S1"))
package session
