// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// cosmos-analytics.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AnalyticsConfig: Event store path, write queue and ingestion rate
//   - PrivacyConfig: The persistent do-not-track switch
//   - LoggingConfig: Diagnostics level, format and destination
//   - Watcher: Reloads the config file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (COSMOS_*, DNT)
//   - ~/.cosmos/config.toml
//   - ~/.cosmos/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Follow changes:
//
//	w, _ := config.NewWatcher(path, func(c *config.Config) {
//	    gate.SetOptOut(c.Privacy.DoNotTrack)
//	}, logger)
//	w.Start()
//	defer w.Close()
package config
