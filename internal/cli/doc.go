// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the cosmos-analytics command-line interface.
//
// # Commands
//
//   - summary: aggregated report, optionally with daily trends
//   - events: list stored events with type/session filters
//   - export: summary plus every event as one JSON document
//   - clear: delete every stored event
//   - ingest: record events read as JSON lines
//   - status: store and privacy state
//   - config: show, get, and set configuration
//
// Every command accepts --json and then writes a JSONResponse envelope.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	app, err := cli.NewApp(args)
//	...
//	defer app.Close()
//	err = app.HandleSummary(args)
package cli
