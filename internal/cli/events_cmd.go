// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// events_cmd.go - The events command: list stored events.

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/event"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/util"
)

// Column widths of the events table.
const (
	colID      = 6
	colTime    = 24
	colType    = 23
	colSession = 24
)

// HandleEvents lists stored events, filtered by --type and --session.
func (a *App) HandleEvents(args Args) error {
	events, err := a.selectEvents(args)
	if err != nil {
		return err
	}

	if a.JSON {
		return a.writeJSON(CmdEvents, events)
	}

	if len(events) == 0 {
		a.println(DimStyle.Render("No events stored."))
		return nil
	}

	dataWidth := GetTerminalWidth() - colID - colTime - colType - colSession - 4
	if dataWidth < 20 {
		dataWidth = 20
	}

	a.printf("%s %s %s %s %s\n",
		util.PadRight("ID", colID),
		util.PadRight("TIMESTAMP", colTime),
		util.PadRight("TYPE", colType),
		util.PadRight("SESSION", colSession),
		"DATA")
	a.println(RenderSeparator(colID + colTime + colType + colSession + dataWidth + 4))
	for _, ev := range events {
		a.printf("%s %s %s %s %s\n",
			util.PadRight(fmt.Sprintf("%d", ev.ID), colID),
			util.PadRight(ev.Timestamp.UTC().Format(event.TimestampLayout), colTime),
			util.PadRight(ev.Type().String(), colType),
			util.PadRight(util.TruncateWidth(ev.SessionID, colSession), colSession),
			util.TruncateWidth(compactData(ev), dataWidth))
	}
	a.println(DimStyle.Render(fmt.Sprintf("%d events", len(events))))
	return nil
}

// selectEvents runs the narrowest scan for the filters, then applies the
// rest in memory. --limit keeps the newest events.
func (a *App) selectEvents(args Args) ([]event.Event, error) {
	var (
		events []event.Event
		err    error
	)

	switch {
	case args.Type != "":
		t, perr := event.ParseType(args.Type)
		if perr != nil {
			return nil, &UsageError{Message: perr.Error()}
		}
		events, err = a.Store.ScanByType(a.ctx(), t)
	case args.Session != "":
		events, err = a.Store.ScanBySession(a.ctx(), args.Session)
	default:
		events, err = a.Store.ScanAll(a.ctx())
	}
	if err != nil {
		return nil, NewCommandError("events", "scan", err)
	}

	if args.Type != "" && args.Session != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.SessionID == args.Session {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	if args.Limit > 0 && len(events) > args.Limit {
		events = events[len(events)-args.Limit:]
	}
	return events, nil
}

func compactData(ev event.Event) string {
	b, err := json.Marshal(ev.Data())
	if err != nil {
		return "{}"
	}
	return string(b)
}
