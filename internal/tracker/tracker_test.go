// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/analytics"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/privacy"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/session"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func allowGate() *privacy.Gate {
	g := privacy.NewGate(func() bool { return true }, false)
	g.Getenv = func(string) string { return "" }
	return g
}

type fixture struct {
	tracker *Tracker
	store   *storage.EventStore
	gate    *privacy.Gate
	session *session.MemoryStore
	clock   *clock
	host    *event.StaticContext
}

func newFixture(t *testing.T, storeOpts ...storage.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   storage.New(storage.DefaultConfig(filepath.Join(t.TempDir(), "analytics.db")), storeOpts...),
		gate:    allowGate(),
		session: session.NewMemoryStore(),
		clock:   &clock{now: t0},
		host:    event.NewStaticContext(event.DefaultContext()),
	}
	sess := session.NewContext(f.session, session.WithID("S1"))
	f.tracker = New(f.store, f.gate, sess,
		WithClock(f.clock.Now),
		WithContextProvider(f.host))
	t.Cleanup(f.tracker.Close)
	return f
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestTracker_SinglePageView(t *testing.T) {
	f := newFixture(t)

	f.tracker.TrackPageView("")

	s := f.tracker.GetAnalyticsSummary()
	assert.Equal(t, 1, s.TotalPageViews)
	assert.Equal(t, 1, s.UniqueVisitors)
	assert.Equal(t, 1.0, s.BounceRate)
}

func TestTracker_SessionDurationAndLiteralBounce(t *testing.T) {
	f := newFixture(t)

	f.tracker.TrackPageView("/")
	f.clock.Set(t0.Add(120 * time.Second))
	f.tracker.TrackObservationView("m1", "Crab Nebula")

	s := f.tracker.GetAnalyticsSummary()
	assert.Equal(t, 120.0, s.AverageSessionDuration)
	// One page_view in the session counts as a bounce even with other events
	assert.Equal(t, 1.0, s.BounceRate)
}

func TestTracker_TopSearchTerm(t *testing.T) {
	f := newFixture(t)

	f.tracker.TrackSearch("nebula", 10)
	f.tracker.TrackSearch("Nebula", 10)
	f.tracker.TrackSearch("nebula", 9)
	f.tracker.TrackSearch("galaxy", 2)

	s := f.tracker.GetAnalyticsSummary()
	require.NotEmpty(t, s.TopSearchTerms)
	assert.Equal(t, "nebula", s.TopSearchTerms[0].Term)
	assert.Equal(t, 3, s.TopSearchTerms[0].Count)
}

func TestTracker_ClearAnalytics(t *testing.T) {
	f := newFixture(t)

	f.tracker.TrackPageView("/")
	f.tracker.TrackFeatureUse("sky-map", "zoom")
	f.tracker.Flush()
	removed, err := f.tracker.ClearAnalytics()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	events := f.tracker.GetAllEvents()
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestTracker_StorageThrowsOnOpen(t *testing.T) {
	f := newFixture(t, storage.WithOpener(func(string) (*sql.DB, error) {
		panic("storage denied")
	}))

	assert.NotPanics(t, func() {
		f.tracker.TrackEvent(event.PageView{})
		f.tracker.TrackSearch("nebula", 1)
		f.tracker.Flush()
	})
	assert.Empty(t, f.tracker.GetAllEvents())
	assert.Equal(t, 0, f.tracker.GetAnalyticsSummary().TotalPageViews)
}

func TestTracker_StorageOpenError(t *testing.T) {
	f := newFixture(t, storage.WithOpener(func(string) (*sql.DB, error) {
		return nil, errors.New("quota exceeded")
	}))

	assert.NotPanics(t, func() { f.tracker.TrackPageView("/") })
	assert.JSONEq(t, `[]`, mustJSON(t, f.tracker.GetAllEvents()))

	_, err := f.tracker.ClearAnalytics()
	require.ErrorIs(t, err, storage.ErrUnavailable)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestTracker_OptOutSuppressesEverything(t *testing.T) {
	f := newFixture(t)
	f.gate.SetOptOut(true)

	for i := 0; i < 100; i++ {
		f.tracker.TrackPageView("/")
		f.tracker.TrackRaw("search", map[string]any{"query": "pulsar", "resultCount": 1})
	}

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, f.tracker.Enabled())
}

func TestTracker_DoNotTrackEnv(t *testing.T) {
	f := newFixture(t)
	f.gate.Getenv = func(name string) string {
		if name == "DNT" {
			return "1"
		}
		return ""
	}

	f.tracker.TrackPageView("/")
	assert.Empty(t, f.tracker.GetAllEvents())
}

func TestTracker_UnavailableStorageIsSilent(t *testing.T) {
	f := newFixture(t)
	f.gate.Available = func() bool { return false }

	f.tracker.TrackPageView("/")
	assert.Empty(t, f.tracker.GetAllEvents())
}

func TestTracker_SessionCreatedLazily(t *testing.T) {
	store := storage.New(storage.DefaultConfig(filepath.Join(t.TempDir(), "analytics.db")))
	volatile := session.NewMemoryStore()
	gate := allowGate()
	gate.SetOptOut(true)

	tr := New(store, gate, session.NewContext(volatile))
	defer tr.Close()

	tr.TrackPageView("/")
	_, ok := volatile.Get(session.StorageKey)
	assert.False(t, ok, "no session before the first tracked event")

	gate.SetOptOut(false)
	tr.TrackPageView("/")
	id, ok := volatile.Get(session.StorageKey)
	require.True(t, ok)

	events := tr.GetAllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].SessionID)
}

func TestTracker_RetentionOnAppend(t *testing.T) {
	f := newFixture(t)

	f.clock.Set(t0.AddDate(0, 0, -35))
	f.tracker.TrackPageView("/old")
	f.clock.Set(t0.AddDate(0, 0, -10))
	f.tracker.TrackPageView("/recent")

	// The old event survives until a write happens after it expired
	require.Len(t, f.tracker.GetAllEvents(), 2)

	f.clock.Set(t0)
	f.tracker.TrackPageView("/now")

	events := f.tracker.GetAllEvents()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.False(t, ev.Timestamp.Before(t0.AddDate(0, 0, -30)))
	}
}

func TestTracker_ContextEnvelope(t *testing.T) {
	f := newFixture(t)
	f.host.Set(event.Context{
		Path:           "/explore",
		Referrer:       "/",
		ViewportWidth:  1280,
		ViewportHeight: 720,
		PixelRatio:     2,
	})

	f.tracker.TrackPageView("")
	f.tracker.TrackFeatureUse("compare", "open")

	events := f.tracker.GetAllEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "/explore", events[0].Data()["path"])
	assert.Equal(t, "S1", events[1].SessionID)
	assert.Equal(t, 1280, events[1].Context.ViewportWidth)
}

func TestTracker_InvalidInputIsDropped(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		f.tracker.TrackEvent(nil)
		f.tracker.TrackSearch("", 3)
		f.tracker.TrackObservationView("", "nameless")
		f.tracker.TrackRaw("checkout", map[string]any{"sku": "1"})
		f.tracker.TrackRaw("search", map[string]any{"query": []string{"nested"}})
	})
	assert.Empty(t, f.tracker.GetAllEvents())
}

func TestTracker_MissingContextIsDropped(t *testing.T) {
	f := newFixture(t)
	f.host.Set(event.Context{})

	f.tracker.TrackFeatureUse("sky-map", "zoom")
	assert.Empty(t, f.tracker.GetAllEvents())
}

func TestTracker_TrackRaw(t *testing.T) {
	f := newFixture(t)

	f.tracker.TrackRaw("classification_complete", map[string]any{
		"projectId":   "galaxy-zoo",
		"projectName": "Galaxy Zoo",
		"timeSpent":   42.5,
	})

	events := f.tracker.GetAllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, event.Classification{ProjectID: "galaxy-zoo", ProjectName: "Galaxy Zoo", TimeSpent: 42.5}, events[0].Payload)
}

func TestTracker_RateLimit(t *testing.T) {
	store := storage.New(storage.DefaultConfig(filepath.Join(t.TempDir(), "analytics.db")))
	clk := &clock{now: t0}
	tr := New(store, allowGate(), session.NewContext(nil, session.WithID("S1")),
		WithClock(clk.Now),
		WithRateLimit(1, 2))
	defer tr.Close()

	for i := 0; i < 5; i++ {
		tr.TrackPageView("/")
	}
	assert.Len(t, tr.GetAllEvents(), 2)

	clk.Set(t0.Add(time.Second))
	tr.TrackPageView("/")
	assert.Len(t, tr.GetAllEvents(), 3)
}

// =============================================================================
// EXPORT
// =============================================================================

func TestTracker_ExportAnalytics(t *testing.T) {
	f := newFixture(t)
	f.tracker.TrackPageView("/")
	f.tracker.TrackSearch("nebula", 3)

	out := f.tracker.ExportAnalytics()

	var doc struct {
		ExportedAt string            `json:"exportedAt"`
		Summary    analytics.Summary `json:"summary"`
		Events     []event.Event     `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2025-06-01T12:00:00.000Z", doc.ExportedAt)
	assert.Equal(t, 1, doc.Summary.TotalPageViews)
	require.Len(t, doc.Events, 2)
	assert.Equal(t, event.TypeSearch, doc.Events[1].Type())
	assert.Contains(t, out, "\n  \"summary\"", "export is indented")
}

func TestTracker_ExportUnavailableStore(t *testing.T) {
	f := newFixture(t, storage.WithOpener(func(string) (*sql.DB, error) {
		return nil, errors.New("private mode")
	}))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(f.tracker.ExportAnalytics()), &doc))
	assert.JSONEq(t, `[]`, string(doc["events"]))
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

// panicStore fails every way it can.
type panicStore struct{}

func (panicStore) Append(event.Event) <-chan storage.Result        { panic("append") }
func (panicStore) DeleteOlderThan(time.Time) <-chan storage.Result { panic("delete") }
func (panicStore) Clear(context.Context) (int, error)              { panic("clear") }
func (panicStore) ScanAll(context.Context) ([]event.Event, error)  { panic("scan") }
func (panicStore) Flush(context.Context) error                     { panic("flush") }
func (panicStore) Close() error                                    { panic("close") }

type panicGate struct{}

func (panicGate) Allowed() bool { panic("gate") }

func TestTracker_CollaboratorPanicsAreContained(t *testing.T) {
	tr := New(panicStore{}, allowGate(), session.NewContext(nil))

	assert.NotPanics(t, func() {
		tr.TrackPageView("/")
		tr.TrackRaw("search", map[string]any{"query": "x"})
		assert.Empty(t, tr.GetAllEvents())
		assert.Equal(t, 0, tr.GetAnalyticsSummary().TotalPageViews)
		assert.NotEmpty(t, tr.ExportAnalytics())
		_, err := tr.ClearAnalytics()
		var te *storage.TrackingError
		assert.ErrorAs(t, err, &te, "a failed clear must be reported")
		tr.Flush()
		tr.Close()
	})

	gated := New(panicStore{}, panicGate{}, session.NewContext(nil))
	assert.NotPanics(t, func() { gated.TrackPageView("/") })
	assert.False(t, gated.Enabled())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
