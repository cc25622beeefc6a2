// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retention

import (
	"time"

	"go.uber.org/zap"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

// Window is how long an event is kept. It is not configurable.
const Window = 30 * 24 * time.Hour

// Sweeper removes events stamped before a cutoff.
type Sweeper interface {
	DeleteOlderThan(cutoff time.Time) <-chan storage.Result
}

// Pruner deletes events that fell out of the retention window.
type Pruner struct {
	store Sweeper
	log   *zap.Logger
}

// NewPruner creates a pruner over store.
func NewPruner(store Sweeper, log *zap.Logger) *Pruner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pruner{store: store, log: log}
}

// Cutoff returns the oldest timestamp still inside the window at now.
func Cutoff(now time.Time) time.Time {
	return now.Add(-Window)
}

// PruneIfDue queues a sweep of everything older than Cutoff(now). It does not
// wait for the sweep; the result channel may be ignored.
func (p *Pruner) PruneIfDue(now time.Time) <-chan storage.Result {
	cutoff := Cutoff(now)
	p.log.Debug("retention: sweep queued", zap.Time("cutoff", cutoff))
	return p.store.DeleteOlderThan(cutoff)
}

// Expired reports whether an event stamped at ts is outside the window at now.
func Expired(ts, now time.Time) bool {
	return ts.Before(Cutoff(now))
}
