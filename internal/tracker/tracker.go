// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/analytics"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/retention"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Store is the event store as seen by the facade.
type Store interface {
	Append(ev event.Event) <-chan storage.Result
	DeleteOlderThan(cutoff time.Time) <-chan storage.Result
	Clear(ctx context.Context) (int, error)
	ScanAll(ctx context.Context) ([]event.Event, error)
	Flush(ctx context.Context) error
	Close() error
}

// Gate decides whether tracking is permitted right now.
type Gate interface {
	Allowed() bool
}

// SessionSource yields the current visit's session id.
type SessionSource interface {
	ID() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the diagnostics logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithClock overrides the ingestion clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithContextProvider sets where the host context envelope comes from.
func WithContextProvider(p event.ContextProvider) Option {
	return func(t *Tracker) {
		if p != nil {
			t.context = p
		}
	}
}

// WithRateLimit caps ingestion at perSecond events with the given burst.
// A non-positive rate disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Tracker) {
		if perSecond <= 0 {
			t.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker is the analytics facade. It is safe for concurrent use.
type Tracker struct {
	store   Store
	gate    Gate
	session SessionSource
	pruner  *retention.Pruner
	agg     *analytics.Aggregator
	context event.ContextProvider
	limiter *rate.Limiter
	now     func() time.Time
	log     *zap.Logger
}

// New creates a tracker writing to store.
func New(store Store, gate Gate, sess SessionSource, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		gate:    gate,
		session: sess,
		context: event.NewStaticContext(event.DefaultContext()),
		limiter: rate.NewLimiter(rate.Inf, 0),
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.pruner = retention.NewPruner(store, t.log)
	t.agg = analytics.NewAggregator(store, t.log)
	return t
}

// recover swallows a panic from a collaborator. Must be deferred directly.
func (t *Tracker) recover(op string) {
	if r := recover(); r != nil {
		t.log.Error("tracker: recovered panic", zap.String("op", op), zap.Any("panic", r))
	}
}

// Enabled reports whether tracked events would currently be recorded.
func (t *Tracker) Enabled() (enabled bool) {
	defer t.recover("enabled")
	return t.gate != nil && t.gate.Allowed()
}

// =============================================================================
// TRACKING
// =============================================================================

// TrackEvent records one event. It returns once the write is dispatched.
func (t *Tracker) TrackEvent(p event.Payload) {
	defer t.recover("track")

	if !t.Enabled() {
		t.log.Debug("tracker: tracking disabled, event dropped")
		return
	}

	now := t.now()
	if !t.limiter.AllowN(now, 1) {
		t.log.Debug("tracker: rate limited, event dropped")
		return
	}

	var eventType event.EventType
	if p != nil {
		eventType = p.Type()
	}
	ev, err := event.New(p, t.context.Current(), t.session.ID(), now)
	if err != nil {
		t.log.Warn("tracker: invalid event", zap.String("event_type", eventType.String()), zap.Error(err))
		return
	}

	t.store.Append(ev)
	t.pruner.PruneIfDue(now)
}

// TrackRaw records an event given as a type name and a flat data map, as
// produced by external callers.
func (t *Tracker) TrackRaw(eventType string, data map[string]any) {
	defer t.recover("track_raw")

	p, err := event.PayloadFromMap(eventType, data)
	if err != nil {
		t.log.Warn("tracker: rejected event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	t.TrackEvent(p)
}

// TrackPageView records a page view. An empty path means the host's current
// path.
func (t *Tracker) TrackPageView(path string) {
	t.TrackEvent(event.PageView{Path: path})
}

func (t *Tracker) TrackObservationView(id, name string) {
	t.TrackEvent(event.ObservationView{ObservationID: id, ObservationName: name})
}

func (t *Tracker) TrackClassification(projectID, projectName string, timeSpentSeconds float64) {
	t.TrackEvent(event.Classification{ProjectID: projectID, ProjectName: projectName, TimeSpent: timeSpentSeconds})
}

func (t *Tracker) TrackSearch(query string, resultCount int) {
	t.TrackEvent(event.Search{Query: query, ResultCount: resultCount})
}

func (t *Tracker) TrackFeatureUse(feature, action string) {
	t.TrackEvent(event.FeatureUse{Feature: feature, Action: action})
}

// =============================================================================
// READS
// =============================================================================

// GetAllEvents returns every stored event, or an empty slice if the store
// cannot be read.
func (t *Tracker) GetAllEvents() (events []event.Event) {
	defer func() {
		if events == nil {
			events = make([]event.Event, 0)
		}
	}()
	defer t.recover("get_all_events")

	events, err := t.store.ScanAll(context.Background())
	if err != nil {
		t.log.Debug("tracker: scan failed", zap.Error(err))
		return nil
	}
	return events
}

// GetAnalyticsSummary computes a fresh summary of the stored events.
func (t *Tracker) GetAnalyticsSummary() (s analytics.Summary) {
	s = analytics.Empty()
	defer t.recover("get_summary")

	summary, err := t.agg.ComputeSummary(context.Background())
	if err != nil {
		t.log.Debug("tracker: summary failed", zap.Error(err))
		return analytics.Empty()
	}
	return summary
}

// Export is the document produced by ExportAnalytics.
type Export struct {
	ExportedAt string            `json:"exportedAt"`
	Summary    analytics.Summary `json:"summary"`
	Events     []event.Event     `json:"events"`
}

// ExportAnalytics returns the summary and every event as indented JSON.
func (t *Tracker) ExportAnalytics() string {
	doc := Export{
		ExportedAt: t.now().UTC().Format(event.TimestampLayout),
		Summary:    t.GetAnalyticsSummary(),
		Events:     t.GetAllEvents(),
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.log.Warn("tracker: export failed", zap.Error(err))
		doc.Summary, doc.Events = analytics.Empty(), make([]event.Event, 0)
		b, _ = json.MarshalIndent(doc, "", "  ")
	}
	return string(b)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// ClearAnalytics empties the store and returns how many events were
// removed. It applies regardless of the privacy gate and waits until the
// deletion is applied.
func (t *Tracker) ClearAnalytics() (removed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("tracker: recovered panic", zap.String("op", "clear"), zap.Any("panic", r))
			removed, err = 0, &storage.TrackingError{Op: "clear", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	removed, err = t.store.Clear(context.Background())
	if err != nil {
		t.log.Warn("tracker: clear failed", zap.Error(err))
	}
	return removed, err
}

// Flush waits for every dispatched write to be applied.
func (t *Tracker) Flush() {
	defer t.recover("flush")
	if err := t.store.Flush(context.Background()); err != nil {
		t.log.Debug("tracker: flush failed", zap.Error(err))
	}
}

// Close drains pending writes and releases the store.
func (t *Tracker) Close() {
	defer t.recover("close")
	if err := t.store.Close(); err != nil {
		t.log.Warn("tracker: close failed", zap.Error(err))
	}
}
