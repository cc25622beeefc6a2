// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingSweeper struct {
	cutoffs []time.Time
}

func (r *recordingSweeper) DeleteOlderThan(cutoff time.Time) <-chan storage.Result {
	r.cutoffs = append(r.cutoffs, cutoff)
	ch := make(chan storage.Result, 1)
	ch <- storage.Result{}
	return ch
}

func TestCutoff(t *testing.T) {
	assert.Equal(t, now.AddDate(0, 0, -30), Cutoff(now))
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"forty days old", now.AddDate(0, 0, -40), true},
		{"thirty days and a millisecond", now.Add(-Window - time.Millisecond), true},
		{"exactly thirty days", now.Add(-Window), false},
		{"one day old", now.AddDate(0, 0, -1), false},
		{"future", now.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expired(tt.ts, now))
		})
	}
}

func TestPruner_PassesCutoff(t *testing.T) {
	sw := &recordingSweeper{}
	p := NewPruner(sw, nil)

	<-p.PruneIfDue(now)

	require.Len(t, sw.cutoffs, 1)
	assert.Equal(t, Cutoff(now), sw.cutoffs[0])
}

func TestPruner_SweepsStore(t *testing.T) {
	store := storage.New(storage.DefaultConfig(filepath.Join(t.TempDir(), "analytics.db")))
	defer store.Close()
	ctx := context.Background()

	for _, age := range []int{45, 31, 29, 0} {
		ev, err := event.New(event.PageView{}, event.DefaultContext(), "S1", now.AddDate(0, 0, -age))
		require.NoError(t, err)
		store.Append(ev)
	}

	r := <-NewPruner(store, nil).PruneIfDue(now)
	require.NoError(t, r.Err)
	assert.Equal(t, 2, r.Affected)

	events, err := store.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.False(t, Expired(ev.Timestamp, now))
	}
}
