// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ingest_cmd.go - The ingest command: record events from JSON lines.

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/tracker"
)

// maxLineSize bounds one input line.
const maxLineSize = 1 << 20

// ingestLine is one input record.
type ingestLine struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
	// Context overrides fields of the host context for this line only.
	Context *event.Context `json:"context"`
}

// IngestResult is the JSON form of the ingest command.
type IngestResult struct {
	Lines     int `json:"lines"`
	Malformed int `json:"malformed"`
	Stored    int `json:"stored"`
	// Dropped counts well-formed lines that were not stored: opted out or
	// invalid.
	Dropped int    `json:"dropped"`
	Session string `json:"session"`
}

// HandleIngest reads JSON lines from --file or stdin and tracks each one.
// Ingest is a bulk replay, so the interactive rate limit does not apply and
// writes are flushed in batches that fit the queue. The config file is
// watched while ingesting, so flipping privacy.do_not_track takes effect
// mid-stream.
func (a *App) HandleIngest(args Args) error {
	in := a.In
	if args.File != "" {
		f, err := os.Open(args.File)
		if err != nil {
			return NewCommandError("ingest", "open", err)
		}
		defer f.Close()
		in = f
	}

	before, err := a.Store.Count(a.ctx())
	if err != nil {
		return NewCommandError("ingest", "count", err)
	}

	if stop := a.watchOptOut(); stop != nil {
		defer stop()
	}

	result, err := a.ingest(in)
	if err != nil {
		return NewCommandError("ingest", "read", err)
	}

	a.Tracker.Flush()
	after, err := a.Store.Count(a.ctx())
	if err != nil {
		return NewCommandError("ingest", "count", err)
	}
	result.Stored = after - before
	if result.Stored < 0 {
		// A retention sweep removed more than was written
		result.Stored = 0
	}
	result.Dropped = result.Lines - result.Malformed - result.Stored
	if result.Dropped < 0 {
		result.Dropped = 0
	}
	result.Session = a.Session.ID()

	if a.JSON {
		return a.writeJSON(CmdIngest, result)
	}
	a.printf("%s Read %d lines: %d stored, %d dropped, %d malformed\n",
		SuccessStyle.Render("[OK]"), result.Lines, result.Stored, result.Dropped, result.Malformed)
	if !a.Tracker.Enabled() {
		a.println(WarningStyle.Render("Tracking is disabled (opted out or storage unavailable)."))
	}
	return nil
}

func (a *App) ingest(r io.Reader) (IngestResult, error) {
	var result IngestResult
	base := a.Host.Current()

	feed := tracker.New(a.Store, a.Gate, a.Session,
		tracker.WithLogger(a.Log),
		tracker.WithClock(a.now),
		tracker.WithContextProvider(a.Host),
		tracker.WithRateLimit(0, 0),
	)
	batch := ingestBatch(a.Config.Analytics.QueueSize)
	pending := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		result.Lines++

		// Decoding into a copy of the base context merges partial overrides
		line := ingestLine{Context: &event.Context{}}
		*line.Context = base
		if err := json.Unmarshal([]byte(text), &line); err != nil || line.EventType == "" {
			result.Malformed++
			a.Log.Debug("ingest: malformed line", zap.Int("line", result.Lines), zap.Error(err))
			continue
		}
		if line.Context == nil {
			line.Context = &base
		}

		a.Host.Set(*line.Context)
		feed.TrackRaw(line.EventType, line.Data)
		if pending++; pending == batch {
			feed.Flush()
			pending = 0
		}
	}
	a.Host.Set(base)
	feed.Flush()

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("line %d: %w", result.Lines+1, err)
	}
	return result, nil
}

// ingestBatch is how many lines may be tracked between flushes. Each tracked
// event queues an append and a retention sweep, so a batch started on an
// empty queue never overflows it.
func ingestBatch(queueSize int) int {
	if n := (queueSize - 1) / 2; n > 1 {
		return n
	}
	return 1
}

// watchOptOut applies privacy.do_not_track changes from the config file to
// the gate. It returns nil when the file cannot be watched.
func (a *App) watchOptOut() func() {
	if a.ConfigPath == "" {
		return nil
	}
	w, err := config.NewWatcher(a.ConfigPath, func(cfg *config.Config) {
		a.Gate.SetOptOut(cfg.Privacy.DoNotTrack)
		a.Log.Info("ingest: opt-out changed", zap.Bool("do_not_track", cfg.Privacy.DoNotTrack))
	}, a.Log)
	if err != nil {
		a.Log.Debug("ingest: config watcher unavailable", zap.Error(err))
		return nil
	}
	if err := w.Start(); err != nil {
		w.Close()
		a.Log.Debug("ingest: config watcher unavailable", zap.Error(err))
		return nil
	}
	return func() { w.Close() }
}
