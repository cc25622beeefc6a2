// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package event defines the analytics event model.
//
// An Event is one immutable record of a user action. Its payload is a tagged
// union: each EventType has its own Payload implementation, and the page
// context every event carries (path, referrer, viewport, pixel ratio, touch)
// lives in a shared Context envelope.
//
// # Key Types
//
//   - EventType: closed set of event kinds (page_view, search, ...)
//   - Payload: per-type payload (PageView, ObservationView, Classification,
//     Search, FeatureUse)
//   - Context: contextual envelope attached to every event
//   - Event: a stored, timestamped, session-scoped record
//
// # Usage
//
//	ev, err := event.New(event.Search{Query: "nebula", ResultCount: 12},
//	    ctx, sessionID, time.Now())
//	if err != nil {
//	    // malformed input, never reaches the store
//	}
//
// Events flatten to a primitive map with Data(); that map is what gets
// persisted and exported, and Decode rebuilds the typed form from it.
package event
