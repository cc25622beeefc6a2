// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
)

// Scanner is the read side of the event store.
type Scanner interface {
	ScanAll(ctx context.Context) ([]event.Event, error)
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes reports from a full store scan.
type Aggregator struct {
	store Scanner
	log   *zap.Logger
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store Scanner, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{store: store, log: log}
}

// ComputeSummary scans every stored event and summarizes it. On a scan
// failure it returns the empty summary along with the error.
func (a *Aggregator) ComputeSummary(ctx context.Context) (Summary, error) {
	events, err := a.store.ScanAll(ctx)
	if err != nil {
		return Empty(), err
	}
	s := Summarize(events)
	a.log.Debug("analytics: summary computed",
		zap.Int("events", len(events)),
		zap.Int("visitors", s.UniqueVisitors))
	return s, nil
}

// ComputeTrends scans every stored event and buckets the last days of it.
func (a *Aggregator) ComputeTrends(ctx context.Context, days int, now time.Time) (Trends, error) {
	events, err := a.store.ScanAll(ctx)
	if err != nil {
		return Trends{Days: days, Daily: make([]DailyActivity, 0)}, err
	}
	return BuildTrends(events, days, now), nil
}

// =============================================================================
// TRENDS
// =============================================================================

// Trends is per-day activity over a trailing window.
type Trends struct {
	Days   int             `json:"days"`
	Events int             `json:"events"`
	Daily  []DailyActivity `json:"daily"`
}

// DailyActivity counts one UTC day of events.
type DailyActivity struct {
	Date      time.Time `json:"date"`
	Events    int       `json:"events"`
	PageViews int       `json:"pageViews"`
	Sessions  int       `json:"sessions"`
}

// BuildTrends buckets events from the last days (relative to now) by UTC
// day. Days with no events are omitted; the result is sorted by date.
func BuildTrends(events []event.Event, days int, now time.Time) Trends {
	trends := Trends{Days: days, Daily: make([]DailyActivity, 0)}
	if days <= 0 {
		return trends
	}
	from := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	dailyMap := make(map[string]*DailyActivity)
	sessionsSeen := make(map[string]map[string]bool)
	for _, ev := range events {
		ts := ev.Timestamp.UTC()
		if ts.Before(from) || ts.After(now) {
			continue
		}

		dateKey := ts.Format("2006-01-02")
		daily, ok := dailyMap[dateKey]
		if !ok {
			daily = &DailyActivity{Date: ts.Truncate(24 * time.Hour)}
			dailyMap[dateKey] = daily
			sessionsSeen[dateKey] = make(map[string]bool)
		}

		daily.Events++
		if ev.Type() == event.TypePageView {
			daily.PageViews++
		}
		if !sessionsSeen[dateKey][ev.SessionID] {
			sessionsSeen[dateKey][ev.SessionID] = true
			daily.Sessions++
		}
		trends.Events++
	}

	for _, daily := range dailyMap {
		trends.Daily = append(trends.Daily, *daily)
	}
	sort.Slice(trends.Daily, func(i, j int) bool {
		return trends.Daily[i].Date.Before(trends.Daily[j].Date)
	})

	return trends
}
