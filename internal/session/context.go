// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the per-visit session identifier.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageKey is the volatile-store key holding the session token.
const StorageKey = "cosmos_session_id"

// suffixLen is the length of the random part of a generated id.
const suffixLen = 9

// =============================================================================
// SESSION CONTEXT
// =============================================================================

// Context owns the session token for one visit.
type Context struct {
	mu    sync.Mutex
	id    string
	store VolatileStore
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// WithClock sets the time source used when generating ids.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// NewContext creates the session context for a visit. A nil store gets a
// fresh MemoryStore.
func NewContext(store VolatileStore, opts ...Option) *Context {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Context{
		store: store,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the visit's session id, creating and persisting it on first
// use. Repeated calls return the same value.
func (c *Context) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.id != "" {
		return c.id
	}
	if v, ok := c.store.Get(StorageKey); ok && v != "" {
		c.id = v
		return c.id
	}

	c.id = generateSessionID(c.now())
	if err := c.store.Set(StorageKey, c.id); err != nil {
		// The id still holds for this process; it just will not survive a
		// reload of the host.
		c.log.Warn("session: could not persist session id", zap.Error(err))
	}
	return c.id
}

// generateSessionID combines the creation time with a short random suffix.
// Not cryptographically strong; a collision only merges two visits.
func generateSessionID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return fmt.Sprintf("%d-%s", t.UnixMilli(), suffix)
}
