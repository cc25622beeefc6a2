// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"fmt"
	"strings"
	"sync"
)

// =============================================================================
// CONTEXT ENVELOPE
// =============================================================================

// Context is the page context attached to every event.
type Context struct {
	Path           string  `json:"path"`
	Referrer       string  `json:"referrer"`
	ViewportWidth  int     `json:"viewportWidth"`
	ViewportHeight int     `json:"viewportHeight"`
	PixelRatio     float64 `json:"pixelRatio"`
	Touch          bool    `json:"touch"`
}

// Validate checks that the always-present fields are usable.
func (c Context) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path", ErrMissingContext)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrMissingContext, c.Path)
	}
	if c.ViewportWidth < 0 || c.ViewportHeight < 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrMissingContext, c.ViewportWidth, c.ViewportHeight)
	}
	if c.PixelRatio <= 0 {
		return fmt.Errorf("%w: pixelRatio", ErrMissingContext)
	}
	return nil
}

// WithPath returns a copy of c pointing at path. An empty path keeps the
// current one.
func (c Context) WithPath(path string) Context {
	if path != "" {
		c.Path = path
	}
	return c
}

func (c Context) fields() map[string]any {
	return map[string]any{
		"path":           c.Path,
		"referrer":       c.Referrer,
		"viewportWidth":  c.ViewportWidth,
		"viewportHeight": c.ViewportHeight,
		"pixelRatio":     c.PixelRatio,
		"touch":          c.Touch,
	}
}

// =============================================================================
// CONTEXT PROVIDER
// =============================================================================

// ContextProvider supplies the host's current page context. The host (the UI
// layer) owns this state; the engine only reads it.
type ContextProvider interface {
	Current() Context
}

// StaticContext is a ContextProvider that returns whatever was last Set.
// Safe for concurrent use.
type StaticContext struct {
	mu  sync.RWMutex
	ctx Context
}

// NewStaticContext creates a provider seeded with c.
func NewStaticContext(c Context) *StaticContext {
	return &StaticContext{ctx: c}
}

// Current returns the stored context.
func (s *StaticContext) Current() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// Set replaces the stored context, e.g. on navigation or resize.
func (s *StaticContext) Set(c Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = c
}

// DefaultContext is used by headless hosts such as the CLI ingester, which
// have no real viewport.
func DefaultContext() Context {
	return Context{
		Path:       "/",
		PixelRatio: 1,
	}
}
