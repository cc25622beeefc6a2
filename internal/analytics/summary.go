// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analytics

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
)

// TopN is the length limit of every ranked list.
const TopN = 10

// =============================================================================
// SUMMARY TYPES
// =============================================================================

// Summary is the derived analytics report.
type Summary struct {
	TotalPageViews      int                 `json:"totalPageViews"`
	UniqueVisitors      int                 `json:"uniqueVisitors"`
	TopObservations     []ObservationCount  `json:"topObservations"`
	TopSearchTerms      []TermCount         `json:"topSearchTerms"`
	ClassificationStats ClassificationStats `json:"classificationStats"`

	// AverageSessionDuration is in seconds, over sessions with 2+ events.
	AverageSessionDuration float64 `json:"averageSessionDuration"`
	BounceRate             float64 `json:"bounceRate"`
	// ReturnVisitorRate is always 0; no identity survives a visit.
	ReturnVisitorRate float64 `json:"returnVisitorRate"`
}

// ObservationCount is one entry of the most-viewed observations list.
type ObservationCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TermCount is one entry of the most-searched terms list.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// ClassificationStats counts finished classifications, per project.
type ClassificationStats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"byType"`
}

// Empty returns the summary of an empty population.
func Empty() Summary {
	return Summary{
		TopObservations:     make([]ObservationCount, 0),
		TopSearchTerms:      make([]TermCount, 0),
		ClassificationStats: ClassificationStats{ByType: make(map[string]int)},
	}
}

// =============================================================================
// SUMMARIZE
// =============================================================================

// sessionStats accumulates per-session engagement data.
type sessionStats struct {
	events    int
	pageViews int
	first     int64 // unix ms
	last      int64
}

// Summarize computes the summary of events. It is order-independent except
// for top-N tie-breaks, which follow the order of events.
func Summarize(events []event.Event) Summary {
	s := Empty()

	observations := newCounter()
	obsNames := make(map[string]string)
	terms := newCounter()

	sessions := make(map[string]*sessionStats)
	var sessionOrder []string

	for _, ev := range events {
		ss, ok := sessions[ev.SessionID]
		if !ok {
			ss = &sessionStats{first: ev.Timestamp.UnixMilli(), last: ev.Timestamp.UnixMilli()}
			sessions[ev.SessionID] = ss
			sessionOrder = append(sessionOrder, ev.SessionID)
		}
		ss.observe(ev)

		switch p := ev.Payload.(type) {
		case event.PageView:
			s.TotalPageViews++
		case event.ObservationView:
			observations.add(p.ObservationID)
			if obsNames[p.ObservationID] == "" {
				obsNames[p.ObservationID] = p.ObservationName
			}
		case event.Search:
			terms.add(TermKey(p.Query))
		case event.Classification:
			s.ClassificationStats.Total++
			s.ClassificationStats.ByType[p.ProjectID]++
		}
	}

	for _, id := range observations.top(TopN) {
		s.TopObservations = append(s.TopObservations, ObservationCount{
			ID:    id,
			Name:  obsNames[id],
			Count: observations.counts[id],
		})
	}
	for _, term := range terms.top(TopN) {
		s.TopSearchTerms = append(s.TopSearchTerms, TermCount{Term: term, Count: terms.counts[term]})
	}

	s.UniqueVisitors = len(sessions)

	// Walk sessions in first-seen order so the float sum is reproducible
	var (
		totalDuration float64
		samples       int
		bounced       int
	)
	for _, id := range sessionOrder {
		ss := sessions[id]
		if ss.events > 1 {
			totalDuration += float64(ss.last-ss.first) / 1000
			samples++
		}
		if ss.pageViews == 1 {
			bounced++
		}
	}
	if samples > 0 {
		s.AverageSessionDuration = totalDuration / float64(samples)
	}
	if s.UniqueVisitors > 0 {
		s.BounceRate = float64(bounced) / float64(s.UniqueVisitors)
	}

	return s
}

func (ss *sessionStats) observe(ev event.Event) {
	ss.events++
	if ev.Type() == event.TypePageView {
		ss.pageViews++
	}
	ts := ev.Timestamp.UnixMilli()
	if ts < ss.first {
		ss.first = ts
	}
	if ts > ss.last {
		ss.last = ts
	}
}

// TermKey returns the ranking key of a search query: its lower-cased text.
// Whitespace and Unicode composition are kept as typed.
func TermKey(query string) string {
	return cases.Lower(language.Und).String(query)
}

// =============================================================================
// RANKING
// =============================================================================

// counter is a frequency count that remembers first-seen order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns up to n keys by count descending; ties keep first-seen order.
func (c *counter) top(n int) []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
