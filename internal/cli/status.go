// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - The status command.

package cli

import (
	"fmt"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/retention"
)

// StatusInfo is the JSON form of the status command. Expired counts stored
// events already past retention that the next sweep will remove.
type StatusInfo struct {
	Database      string `json:"database"`
	Available     bool   `json:"available"`
	Error         string `json:"error,omitempty"`
	EventCount    int    `json:"event_count"`
	Oldest        string `json:"oldest,omitempty"`
	Newest        string `json:"newest,omitempty"`
	Expired       int    `json:"expired"`
	SchemaVersion int    `json:"schema_version"`
	SizeBytes     int64  `json:"size_bytes"`
	RetentionDays int    `json:"retention_days"`
	OptedOut      bool   `json:"opted_out"`
	Tracking      bool   `json:"tracking"`
	ConfigPath    string `json:"config_path"`
}

// HandleStatus reports the state of the store and the privacy gate. An
// unusable store is reported, not returned as an error.
func (a *App) HandleStatus(args Args) error {
	info := StatusInfo{
		Database:      a.Store.Path(),
		RetentionDays: int(retention.Window.Hours() / 24),
		OptedOut:      a.Gate.OptedOut(),
		Tracking:      a.Tracker.Enabled(),
		ConfigPath:    a.ConfigPath,
	}

	stats, err := a.Store.Stats(a.ctx())
	if err != nil {
		info.Error = err.Error()
	} else {
		info.Available = true
		info.EventCount = stats.EventCount
		info.SchemaVersion = stats.SchemaVersion
		info.SizeBytes = stats.DatabaseSize
		if stats.EventCount > 0 {
			info.Oldest = stats.Oldest.UTC().Format(event.TimestampLayout)
			info.Newest = stats.Newest.UTC().Format(event.TimestampLayout)
			if stats.Oldest.Before(retention.Cutoff(a.now())) {
				info.Expired, err = a.countExpired()
				if err != nil {
					info.Error = err.Error()
				}
			}
		}
	}

	if a.JSON {
		return a.writeJSON(CmdStatus, info)
	}

	a.println(TitleStyle.Render("Cosmos Analytics Status"))
	a.println(RenderField("Database", info.Database))
	a.println(RenderField("Store", RenderStatus(info.Available, "available", "unavailable")))
	if info.Error != "" {
		a.println(RenderField("Error", ErrorStyle.Render(info.Error)))
	}
	a.println(RenderField("Events", info.EventCount))
	if info.EventCount > 0 {
		a.println(RenderField("Oldest", info.Oldest))
		a.println(RenderField("Newest", info.Newest))
	}
	if info.Expired > 0 {
		a.println(RenderField("Awaiting sweep", WarningStyle.Render(fmt.Sprintf("%d events", info.Expired))))
	}
	if info.Available {
		a.println(RenderField("Schema version", info.SchemaVersion))
		a.println(RenderField("Size", formatBytes(info.SizeBytes)))
	}
	a.println(RenderField("Retention", fmt.Sprintf("%d days", info.RetentionDays)))
	a.println(RenderField("Opt-out", RenderStatus(!info.OptedOut, "no", "yes")))
	a.println(RenderField("Tracking", RenderStatus(info.Tracking, "enabled", "disabled")))
	if info.ConfigPath != "" {
		a.println(RenderField("Config", info.ConfigPath))
	}
	return nil
}

func (a *App) countExpired() (int, error) {
	events, err := a.Store.ScanAll(a.ctx())
	if err != nil {
		return 0, err
	}
	now := a.now()
	n := 0
	for _, ev := range events {
		if retention.Expired(ev.Timestamp, now) {
			n++
		}
	}
	return n, nil
}

// formatBytes formats bytes as human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
