// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of the analytics engine behind the CLI commands.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/analytics"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/logging"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/privacy"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/session"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/tracker"
)

// App holds the engine components a command runs against.
type App struct {
	Config     *config.Config
	ConfigPath string
	Log        *zap.Logger

	Store      *storage.EventStore
	Gate       *privacy.Gate
	Session    *session.Context
	Host       *event.StaticContext
	Tracker    *tracker.Tracker
	Aggregator *analytics.Aggregator

	Out io.Writer
	In  io.Reader
	// Interactive reports whether In can answer prompts.
	Interactive func() bool

	JSON bool

	now      func() time.Time
	closeLog func()
}

// AppOption configures an App.
type AppOption func(*App)

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) AppOption {
	return func(a *App) { a.Out = w }
}

// WithInput reads stdin-driven input from r.
func WithInput(r io.Reader, interactive bool) AppOption {
	return func(a *App) {
		a.In = r
		a.Interactive = func() bool { return interactive }
	}
}

// WithAppLogger replaces the logger built from the config.
func WithAppLogger(log *zap.Logger) AppOption {
	return func(a *App) { a.Log = log }
}

// WithAppClock overrides the clock used for tracking and trends.
func WithAppClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

// NewApp loads configuration and builds the engine. The event store is not
// opened until a command touches it.
func NewApp(args Args, opts ...AppOption) (*App, error) {
	if args.NoColor {
		ForceColorsEnabled(false)
	}

	cfg, cfgPath, loadErr := loadConfig(args.ConfigPath)
	if cfg == nil {
		return nil, loadErr
	}
	if args.DBPath != "" {
		cfg.Analytics.DatabasePath = args.DBPath
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}

	a := &App{
		Config:      cfg,
		ConfigPath:  cfgPath,
		Out:         os.Stdout,
		In:          os.Stdin,
		Interactive: IsTTY,
		JSON:        args.JSON,
		now:         time.Now,
		closeLog:    func() {},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Log == nil {
		log, closeLog, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to set up logging: %w", err)
		}
		a.Log, a.closeLog = log, closeLog
	}
	if loadErr != nil {
		a.Log.Warn("config: using defaults", zap.Error(loadErr))
	}

	dbPath := cfg.Analytics.DatabasePath
	a.Store = storage.New(storage.Config{
		Path:      dbPath,
		QueueSize: cfg.Analytics.QueueSize,
	}, storage.WithLogger(a.Log))
	a.Gate = privacy.NewGate(privacy.DirAvailable(dbPath), cfg.Privacy.DoNotTrack)

	sessOpts := []session.Option{session.WithLogger(a.Log), session.WithClock(a.now)}
	if args.Session != "" {
		sessOpts = append(sessOpts, session.WithID(args.Session))
	}
	a.Session = session.NewContext(session.NewMemoryStore(), sessOpts...)
	a.Host = event.NewStaticContext(event.DefaultContext())

	a.Tracker = tracker.New(a.Store, a.Gate, a.Session,
		tracker.WithLogger(a.Log),
		tracker.WithClock(a.now),
		tracker.WithContextProvider(a.Host),
		tracker.WithRateLimit(cfg.Analytics.MaxEventsPerSecond, cfg.Analytics.Burst),
	)
	a.Aggregator = analytics.NewAggregator(a.Store, a.Log)

	return a, nil
}

// loadConfig loads the file at path, or the default locations when path is
// empty. A missing explicit file yields defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		cfg, err := config.Load()
		defaultPath, pathErr := config.ConfigPathTOML()
		if pathErr != nil {
			defaultPath = ""
		}
		if jsonPath, jerr := config.ConfigPathJSON(); jerr == nil && !exists(defaultPath) && exists(jsonPath) {
			defaultPath = jsonPath
		}
		return cfg, defaultPath, err
	}

	path = filepath.Clean(path)
	if !exists(path) {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, path, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, path, nil
	}
	cfg, err := config.LoadFromPath(path)
	return cfg, path, err
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Close drains pending writes, closes the store, and flushes the log.
func (a *App) Close() {
	a.Tracker.Close()
	_ = a.Log.Sync()
	a.closeLog()
}

// ctx returns the context used for store reads.
func (a *App) ctx() context.Context {
	return context.Background()
}

// writeJSON writes data inside the standard response envelope.
func (a *App) writeJSON(cmd Command, data interface{}) error {
	return NewJSONResponse(cmd.String(), data).Write(a.Out)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) println(args ...interface{}) {
	fmt.Fprintln(a.Out, args...)
}
