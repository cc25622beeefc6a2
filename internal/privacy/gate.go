// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package privacy decides whether analytics tracking is permitted.
//
// The Gate is a pure predicate: tracking is allowed only when the host can
// persist data locally and the user has not opted out. It has no side
// effects, and any availability error or panic counts as "not allowed".
package privacy

import (
	"os"
	"strings"
	"sync/atomic"
)

// Env vars treated as an opt-out signal when set to a truthy value.
var optOutEnvVars = []string{"DNT", "COSMOS_DO_NOT_TRACK"}

// Gate is the tracking permission check. The zero value allows nothing,
// because it has no way to tell whether persistence is available.
type Gate struct {
	optOut atomic.Bool

	// Available reports whether a persistence primitive exists in this
	// execution context. Nil means unavailable.
	Available func() bool

	// Getenv is used to read opt-out env vars. Defaults to os.Getenv.
	Getenv func(string) string
}

// NewGate creates a gate using available as the persistence check and
// optOut as the initial configured opt-out value.
func NewGate(available func() bool, optOut bool) *Gate {
	g := &Gate{Available: available}
	g.optOut.Store(optOut)
	return g
}

// SetOptOut updates the configured opt-out value, e.g. after a config reload.
func (g *Gate) SetOptOut(v bool) {
	g.optOut.Store(v)
}

// OptedOut reports whether any opt-out signal is present.
func (g *Gate) OptedOut() bool {
	if g.optOut.Load() {
		return true
	}
	getenv := g.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, name := range optOutEnvVars {
		if truthy(getenv(name)) {
			return true
		}
	}
	return false
}

// Allowed reports whether tracking may proceed. It never panics.
func (g *Gate) Allowed() (allowed bool) {
	if g == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			allowed = false
		}
	}()

	if g.Available == nil || !g.Available() {
		return false
	}
	return !g.OptedOut()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true", "on":
		return true
	}
	return false
}
