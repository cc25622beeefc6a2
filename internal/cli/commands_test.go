// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/tracker"
)

// =============================================================================
// HELPERS
// =============================================================================

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const sampleLines = `{"eventType":"page_view","data":{}}
{"eventType":"search","data":{"query":"Nebula","resultCount":3}}
{"eventType":"search","data":{"query":"nebula","resultCount":1},"context":{"path":"/search"}}
# comments are skipped
{"eventType":"observation_view","data":{"observationId":"m31","observationName":"Andromeda"}}
not json
{"eventType":"comet","data":{}}
`

type testEnv struct {
	dir     string
	cfgPath string
	dbPath  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	for _, k := range []string{"DNT", "COSMOS_DO_NOT_TRACK", "COSMOS_DB_PATH", "COSMOS_LOG_LEVEL", "COSMOS_LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	return testEnv{
		dir:     dir,
		cfgPath: filepath.Join(dir, "config.toml"),
		dbPath:  filepath.Join(dir, "analytics.db"),
	}
}

// run parses argv against env and runs the command, returning its output.
func (e testEnv) run(t *testing.T, stdin string, argv ...string) (string, error) {
	t.Helper()
	full := append([]string{"--config", e.cfgPath, "--db", e.dbPath, "--no-color"}, argv...)
	cmd, args := ParseArgs(full)
	require.NoError(t, args.Err)

	var out bytes.Buffer
	app, err := NewApp(args,
		WithOutput(&out),
		WithInput(strings.NewReader(stdin), false),
		WithAppLogger(zap.NewNop()),
		WithAppClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	defer app.Close()

	switch cmd {
	case CmdSummary:
		err = app.HandleSummary(args)
	case CmdEvents:
		err = app.HandleEvents(args)
	case CmdExport:
		err = app.HandleExport(args)
	case CmdClear:
		err = app.HandleClear(args)
	case CmdIngest:
		err = app.HandleIngest(args)
	case CmdStatus:
		err = app.HandleStatus(args)
	case CmdConfig:
		err = app.HandleConfig(args)
	default:
		t.Fatalf("unexpected command %v", cmd)
	}
	return out.String(), err
}

func decodeData(t *testing.T, out string, into interface{}) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, into))
}

// =============================================================================
// INGEST / SUMMARY TESTS
// =============================================================================

func TestIngest_CountsLines(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, sampleLines, "--json", "ingest", "--session", "S1")
	require.NoError(t, err)

	var res IngestResult
	decodeData(t, out, &res)
	assert.Equal(t, 6, res.Lines)
	assert.Equal(t, 1, res.Malformed)
	assert.Equal(t, 4, res.Stored)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, "S1", res.Session)
}

func TestIngest_FromFileAppliesContext(t *testing.T) {
	env := newTestEnv(t)
	file := filepath.Join(env.dir, "events.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(sampleLines), 0600))

	_, err := env.run(t, "", "ingest", "--file", file, "--session", "S1")
	require.NoError(t, err)

	out, err := env.run(t, "", "--json", "events", "--type", "search")
	require.NoError(t, err)

	var events []event.Event
	decodeData(t, out, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "/", events[0].Context.Path)
	assert.Equal(t, "/search", events[1].Context.Path)
	assert.Equal(t, "S1", events[1].SessionID)
	assert.Equal(t, testNow, events[0].Timestamp)
}

func TestIngest_OptedOutStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("COSMOS_DO_NOT_TRACK", "1")

	out, err := env.run(t, sampleLines, "--json", "ingest")
	require.NoError(t, err)

	var res IngestResult
	decodeData(t, out, &res)
	assert.Zero(t, res.Stored)
	assert.Equal(t, 5, res.Dropped)
}

func TestIngest_BulkIsNotRateLimited(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.cfgPath, []byte("[analytics]\nqueue_size = 8\nmax_events_per_second = 20\nburst = 50\n"), 0600))

	lines := strings.Repeat(`{"eventType":"page_view","data":{}}`+"\n", 200)
	out, err := env.run(t, lines, "--json", "ingest", "--session", "S1")
	require.NoError(t, err)

	var res IngestResult
	decodeData(t, out, &res)
	assert.Equal(t, 200, res.Lines)
	assert.Equal(t, 200, res.Stored)
	assert.Zero(t, res.Dropped)

	// A clear right after a bulk ingest must remove everything
	out, err = env.run(t, "", "--json", "clear", "--yes")
	require.NoError(t, err)
	var cleared ClearResult
	decodeData(t, out, &cleared)
	assert.Equal(t, 200, cleared.Removed)
}

func TestIngestBatch(t *testing.T) {
	tests := []struct {
		queueSize, want int
	}{
		{1, 1},
		{3, 1},
		{8, 3},
		{256, 127},
	}
	for _, tt := range tests {
		if got := ingestBatch(tt.queueSize); got != tt.want {
			t.Errorf("ingestBatch(%d) = %d, want %d", tt.queueSize, got, tt.want)
		}
	}
}

func TestIngest_ConfigWriteFlipsOptOut(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, config.SaveTOML(config.Default(), env.cfgPath))

	_, args := ParseArgs([]string{"--config", env.cfgPath, "--db", env.dbPath, "ingest"})
	require.NoError(t, args.Err)
	app, err := NewApp(args, WithOutput(&bytes.Buffer{}), WithAppLogger(zap.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	stop := app.watchOptOut()
	require.NotNil(t, stop)
	defer stop()
	require.False(t, app.Gate.OptedOut())

	cfg := config.Default()
	cfg.Privacy.DoNotTrack = true
	require.NoError(t, config.SaveTOML(cfg, env.cfgPath))

	require.Eventually(t, app.Gate.OptedOut, 5*time.Second, 10*time.Millisecond)
	assert.False(t, app.Tracker.Enabled())
}

func TestIngest_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "ingest", "--file", filepath.Join(env.dir, "missing.jsonl"))
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "open", cmdErr.Action)
}

func TestSummary_JSON(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest", "--session", "S1")
	require.NoError(t, err)

	out, err := env.run(t, "", "--json", "summary", "--days", "7")
	require.NoError(t, err)

	var report SummaryReport
	decodeData(t, out, &report)
	s := report.Summary
	assert.Equal(t, 1, s.TotalPageViews)
	assert.Equal(t, 1, s.UniqueVisitors)
	require.Len(t, s.TopSearchTerms, 1)
	assert.Equal(t, "nebula", s.TopSearchTerms[0].Term)
	assert.Equal(t, 2, s.TopSearchTerms[0].Count)
	require.Len(t, s.TopObservations, 1)
	assert.Equal(t, "Andromeda", s.TopObservations[0].Name)

	require.NotNil(t, report.Trends)
	require.Len(t, report.Trends.Daily, 1)
	assert.Equal(t, 4, report.Trends.Daily[0].Events)
	assert.Equal(t, 1, report.Trends.Daily[0].Sessions)
}

func TestSummary_TextEmptyStore(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "summary", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosmos Analytics Summary")
	assert.Contains(t, out, "Page views")
	assert.Contains(t, out, "none")
	assert.Contains(t, out, "no activity")
}

// =============================================================================
// EVENTS TESTS
// =============================================================================

func TestEvents_LimitKeepsNewest(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest", "--session", "S1")
	require.NoError(t, err)

	out, err := env.run(t, "", "--json", "events", "--limit", "1")
	require.NoError(t, err)

	var events []event.Event
	decodeData(t, out, &events)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeObservationView, events[0].Type())
}

func TestEvents_UnknownType(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "events", "--type", "comet")
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestEvents_Table(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest", "--session", "S1")
	require.NoError(t, err)

	out, err := env.run(t, "", "events", "--session", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "TIMESTAMP")
	assert.Contains(t, out, "observation_view")
	assert.Contains(t, out, "2025-06-01T12:00:00.000Z")
	assert.Contains(t, out, "4 events")
}

// =============================================================================
// EXPORT / CLEAR TESTS
// =============================================================================

func TestExport_ToFile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest", "--session", "S1")
	require.NoError(t, err)

	target := filepath.Join(env.dir, "export.json")
	out, err := env.run(t, "", "export", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported analytics")

	data, err := os.ReadFile(target)
	require.NoError(t, err)

	var doc struct {
		ExportedAt string            `json:"exportedAt"`
		Events     []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2025-06-01T12:00:00.000Z", doc.ExportedAt)
	assert.Len(t, doc.Events, 4)
}

func TestExport_Stdout(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "export")
	require.NoError(t, err)

	var doc tracker.Export
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Empty(t, doc.Events)
	assert.Zero(t, doc.Summary.TotalPageViews)
}

func TestClear_RequiresYesWhenNotInteractive(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "clear")
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
}

func TestClear_Yes(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest")
	require.NoError(t, err)

	out, err := env.run(t, "", "--json", "clear", "--yes")
	require.NoError(t, err)

	var res ClearResult
	decodeData(t, out, &res)
	assert.Equal(t, 4, res.Removed)

	out, err = env.run(t, "", "--json", "events")
	require.NoError(t, err)
	var events []event.Event
	decodeData(t, out, &events)
	assert.Empty(t, events)
}

func TestClear_PromptDeclined(t *testing.T) {
	env := newTestEnv(t)
	cmd, args := ParseArgs([]string{"--config", env.cfgPath, "--db", env.dbPath, "clear"})
	require.Equal(t, CmdClear, cmd)

	var out bytes.Buffer
	app, err := NewApp(args,
		WithOutput(&out),
		WithInput(strings.NewReader("n\n"), true),
		WithAppLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	defer app.Close()

	err = app.HandleClear(args)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, out.String(), "[y/N]")
}

// =============================================================================
// STATUS / CONFIG TESTS
// =============================================================================

func TestStatus_JSON(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest")
	require.NoError(t, err)

	out, err := env.run(t, "", "--json", "status")
	require.NoError(t, err)

	var info StatusInfo
	decodeData(t, out, &info)
	assert.True(t, info.Available)
	assert.Equal(t, env.dbPath, info.Database)
	assert.Equal(t, 4, info.EventCount)
	assert.Equal(t, 30, info.RetentionDays)
	assert.True(t, info.Tracking)
	assert.False(t, info.OptedOut)
	assert.Zero(t, info.Expired)
}

func TestStatus_ReportsExpired(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, sampleLines, "ingest")
	require.NoError(t, err)

	_, args := ParseArgs([]string{"--config", env.cfgPath, "--db", env.dbPath, "--json", "status"})
	require.NoError(t, args.Err)
	var out bytes.Buffer
	app, err := NewApp(args,
		WithOutput(&out),
		WithAppLogger(zap.NewNop()),
		WithAppClock(func() time.Time { return testNow.AddDate(0, 0, 31) }),
	)
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.HandleStatus(args))

	var info StatusInfo
	decodeData(t, out.String(), &info)
	assert.Equal(t, 4, info.EventCount)
	assert.Equal(t, 4, info.Expired)
}

func TestConfig_SetThenGet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "config", "set", "privacy.do_not_track", "true")
	require.NoError(t, err)

	loaded, err := config.LoadFromPath(env.cfgPath)
	require.NoError(t, err)
	assert.True(t, loaded.Privacy.DoNotTrack)

	out, err := env.run(t, "", "config", "get", "privacy.do_not_track")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = env.run(t, "", "--json", "status")
	require.NoError(t, err)
	var info StatusInfo
	decodeData(t, out, &info)
	assert.True(t, info.OptedOut)
	assert.False(t, info.Tracking)
}

func TestConfig_SetInvalid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "config", "set", "logging.level", "chatty")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, statErr := os.Stat(env.cfgPath)
	assert.True(t, os.IsNotExist(statErr), "invalid config must not be saved")
}

func TestConfig_UnknownKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "config", "get", "analytics.nope")
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
}

func TestConfig_Keys(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "analytics.database_path")
	assert.Contains(t, out, "privacy.do_not_track")
}
