// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the diagnostics logger shared by every component.
//
// Diagnostics are local only: stderr by default, or a file when configured.
// Components accept a *zap.Logger and fall back to zap.NewNop() when given
// nil, so the library packages stay silent unless a host wires this in.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
)

// New builds a logger from cfg. The returned cleanup closes the log file, if
// any, and must be called once the logger is no longer used.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		log, err := NewWithWriter(cfg, os.Stderr)
		return log, func() {}, err
	}

	sink, closeSink, err := zap.Open(cfg.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	core, err := newCore(cfg, sink)
	if err != nil {
		closeSink()
		return nil, nil, err
	}

	log := zap.New(core)
	return log, func() {
		_ = log.Sync()
		closeSink()
	}, nil
}

// NewWithWriter builds a logger from cfg that writes to w, ignoring cfg.File.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) (*zap.Logger, error) {
	core, err := newCore(cfg, zapcore.Lock(zapcore.AddSync(w)))
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

func newCore(cfg config.LoggingConfig, ws zapcore.WriteSyncer) (zapcore.Core, error) {
	level := zapcore.WarnLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	return zapcore.NewCore(enc, ws, level), nil
}
