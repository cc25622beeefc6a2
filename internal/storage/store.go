// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds event store configuration
type Config struct {
	// Path is the SQLite database file. ":memory:" keeps everything in RAM.
	Path string

	// QueueSize bounds the number of pending writes. A full queue drops the
	// write instead of blocking the caller.
	QueueSize int
}

// DefaultConfig returns default configuration for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:      path,
		QueueSize: 256,
	}
}

// Opener opens the database at path. Replaced in tests to simulate a
// missing or failing persistence primitive.
type Opener func(path string) (*sql.DB, error)

func openSQLite(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithOpener overrides how the database is opened.
func WithOpener(o Opener) Option {
	return func(s *EventStore) {
		if o != nil {
			s.opener = o
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *EventStore) {
		if log != nil {
			s.log = log
		}
	}
}

// =============================================================================
// EVENT STORE
// =============================================================================

// opFunc is a unit of work run on the writer goroutine.
type opFunc func(db *sql.DB) Result

type op struct {
	name  string
	run   opFunc // nil for a flush barrier
	reply chan Result
}

// EventStore is the persistent, indexed record of analytics events.
type EventStore struct {
	cfg    Config
	opener Opener
	log    *zap.Logger

	// Lazily opened handle
	dbMu sync.Mutex
	db   *sql.DB
	shut bool

	// Write queue
	qMu    sync.RWMutex
	closed bool
	ops    chan op
	wg     sync.WaitGroup
}

// New creates an event store. The database is not touched until the first
// operation needs it.
func New(cfg Config, opts ...Option) *EventStore {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig("").QueueSize
	}

	s := &EventStore{
		cfg:    cfg,
		opener: openSQLite,
		log:    zap.NewNop(),
		ops:    make(chan op, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.writer()

	return s
}

// Path returns the database path.
func (s *EventStore) Path() string {
	return s.cfg.Path
}

// Open opens the database and creates the schema if needed. Calling it is
// optional; every operation opens lazily.
func (s *EventStore) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.handle()
	return err
}

// Close drains pending writes and closes the database.
func (s *EventStore) Close() error {
	s.qMu.Lock()
	if s.closed {
		s.qMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ops)
	s.qMu.Unlock()

	s.wg.Wait()

	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	s.shut = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handle returns the open database, opening it on first use. A failed open
// is retried by the next caller.
func (s *EventStore) handle() (*sql.DB, error) {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.shut {
		return nil, s.fail("open", ErrClosed)
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := s.open()
	if err != nil {
		return nil, s.fail("open", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	s.db = db
	return db, nil
}

func (s *EventStore) open() (db *sql.DB, err error) {
	defer func() {
		if r := recover(); r != nil {
			db, err = nil, fmt.Errorf("open panicked: %v", r)
		}
	}()

	if s.cfg.Path == "" {
		return nil, errors.New("no database path configured")
	}
	if s.cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err = s.opener(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.log.Debug("storage: opened event store", zap.String("path", s.cfg.Path))
	return db, nil
}

// initSchema creates the tables and indexes. Safe to run on an existing
// store; refuses a store written by a newer layout.
func initSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == nil && version > SchemaVersion {
		return fmt.Errorf("%w: store is v%d, supported v%d", ErrSchemaVersion, version, SchemaVersion)
	}

	if _, err := db.Exec(Schema); err != nil {
		return err
	}
	_, err = db.Exec(InitMetadata)
	return err
}

// fail wraps err as a TrackingError and logs it once.
func (s *EventStore) fail(op string, err error) error {
	var te *TrackingError
	if errors.As(err, &te) {
		return err
	}
	s.log.Warn("storage: operation failed", zap.String("op", op), zap.Error(err))
	return &TrackingError{Op: op, Err: err}
}

// =============================================================================
// WRITE QUEUE
// =============================================================================

func (s *EventStore) writer() {
	defer s.wg.Done()
	for o := range s.ops {
		o.reply <- s.runOp(o)
	}
}

func (s *EventStore) runOp(o op) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: s.fail(o.name, fmt.Errorf("panic: %v", r))}
		}
	}()

	if o.run == nil {
		return Result{}
	}
	db, err := s.handle()
	if err != nil {
		return Result{Err: err}
	}
	res = o.run(db)
	if res.Err != nil {
		res.Err = s.fail(o.name, res.Err)
	}
	return res
}

// enqueue dispatches run to the writer without waiting for it.
func (s *EventStore) enqueue(name string, run opFunc) <-chan Result {
	reply := make(chan Result, 1)

	s.qMu.RLock()
	defer s.qMu.RUnlock()

	if s.closed {
		reply <- Result{Err: s.fail(name, ErrClosed)}
		return reply
	}
	select {
	case s.ops <- op{name: name, run: run, reply: reply}:
	default:
		reply <- Result{Err: s.fail(name, ErrQueueFull)}
	}
	return reply
}

func failed(err error) <-chan Result {
	reply := make(chan Result, 1)
	reply <- Result{Err: err}
	return reply
}

// Flush blocks until every write queued before the call has been applied.
func (s *EventStore) Flush(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		return s.fail("flush", err)
	}
	return nil
}

func (s *EventStore) flush(ctx context.Context) error {
	_, err := s.submit(ctx, "flush", nil)
	return err
}

// submit queues run, waiting for room rather than dropping it, then waits
// for the writer to apply it. The returned error covers only the queueing
// and waiting; failures of run itself are in the Result.
func (s *EventStore) submit(ctx context.Context, name string, run opFunc) (Result, error) {
	reply := make(chan Result, 1)

	s.qMu.RLock()
	if s.closed {
		s.qMu.RUnlock()
		return Result{}, ErrClosed
	}
	select {
	case s.ops <- op{name: name, run: run, reply: reply}:
	case <-ctx.Done():
		s.qMu.RUnlock()
		return Result{}, ctx.Err()
	}
	s.qMu.RUnlock()

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// =============================================================================
// WRITES
// =============================================================================

// Append queues ev for insertion and returns immediately. The channel
// receives the assigned id or the failure; callers may ignore it.
func (s *EventStore) Append(ev event.Event) <-chan Result {
	if !ev.Type().IsValid() || ev.SessionID == "" || ev.Timestamp.IsZero() {
		return failed(s.fail("append", fmt.Errorf("%w: type=%q session=%q", event.ErrInvalidEvent, ev.Type(), ev.SessionID)))
	}

	data, err := json.Marshal(ev.Data())
	if err != nil {
		return failed(s.fail("append", err))
	}

	return s.enqueue("append", func(db *sql.DB) Result {
		res, err := db.Exec(`
			INSERT INTO events (event_type, timestamp, session_id, data)
			VALUES (?, ?, ?, ?)
		`, ev.Type().String(), ev.Timestamp.UnixMilli(), ev.SessionID, string(data))
		if err != nil {
			return Result{Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Result{Err: err}
		}
		return Result{ID: id}
	})
}

// Clear deletes every event and returns how many were removed. Unlike the
// other writes it waits for room in a full queue instead of being dropped,
// and returns once the deletion has been applied. The schema and id
// sequence are kept, so ids are still never reused.
func (s *EventStore) Clear(ctx context.Context) (int, error) {
	r, err := s.submit(ctx, "clear", func(db *sql.DB) Result {
		res, err := db.Exec("DELETE FROM events")
		if err != nil {
			return Result{Err: err}
		}
		n, _ := res.RowsAffected()
		return Result{Affected: int(n)}
	})
	if err != nil {
		return 0, s.fail("clear", err)
	}
	return r.Affected, r.Err
}

// =============================================================================
// SCANS
// =============================================================================

const selectEvents = `SELECT id, event_type, timestamp, session_id, data FROM events`

// ScanAll returns every stored event in id order.
func (s *EventStore) ScanAll(ctx context.Context) ([]event.Event, error) {
	return s.scan(ctx, "scan_all", selectEvents+" ORDER BY id ASC")
}

// ScanByType returns the events of one type, using the event_type index.
func (s *EventStore) ScanByType(ctx context.Context, t event.EventType) ([]event.Event, error) {
	return s.scan(ctx, "scan_by_type", selectEvents+" WHERE event_type = ? ORDER BY id ASC", t.String())
}

// ScanBySession returns the events of one session, using the session_id
// index.
func (s *EventStore) ScanBySession(ctx context.Context, sessionID string) ([]event.Event, error) {
	return s.scan(ctx, "scan_by_session", selectEvents+" WHERE session_id = ? ORDER BY id ASC", sessionID)
}

func (s *EventStore) scan(ctx context.Context, name, query string, args ...any) (events []event.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events, err = nil, s.fail(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.flush(ctx); err != nil {
		return nil, s.fail(name, err)
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(name, err)
	}
	defer rows.Close()

	events = make([]event.Event, 0)
	for rows.Next() {
		var (
			id        int64
			eventType string
			ts        int64
			sessionID string
			data      string
		)
		if err := rows.Scan(&id, &eventType, &ts, &sessionID, &data); err != nil {
			return nil, s.fail(name, err)
		}

		ev, err := event.Decode(eventType, []byte(data))
		if err != nil {
			s.log.Warn("storage: skipping undecodable event", zap.Int64("id", id), zap.Error(err))
			continue
		}
		ev.ID = id
		ev.Timestamp = time.UnixMilli(ts).UTC()
		ev.SessionID = sessionID
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(name, err)
	}

	return events, nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the store for diagnostics.
type Stats struct {
	Path          string
	EventCount    int
	Oldest        time.Time
	Newest        time.Time
	SchemaVersion int
	DatabaseSize  int64
}

// Count returns the number of stored events.
func (s *EventStore) Count(ctx context.Context) (int, error) {
	if err := s.flush(ctx); err != nil {
		return 0, s.fail("count", err)
	}
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// Stats returns current store statistics.
func (s *EventStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Path: s.cfg.Path}

	if err := s.flush(ctx); err != nil {
		return st, s.fail("stats", err)
	}
	db, err := s.handle()
	if err != nil {
		return st, err
	}

	var oldest, newest sql.NullInt64
	err = db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM events").
		Scan(&st.EventCount, &oldest, &newest)
	if err != nil {
		return st, s.fail("stats", err)
	}
	if oldest.Valid {
		st.Oldest = time.UnixMilli(oldest.Int64).UTC()
	}
	if newest.Valid {
		st.Newest = time.UnixMilli(newest.Int64).UTC()
	}

	if err := db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&st.SchemaVersion); err != nil {
		return st, s.fail("stats", err)
	}

	// Database plus WAL file size
	for _, suffix := range []string{"", "-wal"} {
		if info, err := os.Stat(s.cfg.Path + suffix); err == nil {
			st.DatabaseSize += info.Size()
		}
	}

	return st, nil
}
