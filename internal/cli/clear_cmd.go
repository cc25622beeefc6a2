// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// clear_cmd.go - The clear command.

package cli

import (
	"fmt"
)

// ClearResult is the JSON form of the clear command.
type ClearResult struct {
	Removed int `json:"removed"`
}

// HandleClear deletes every stored event. Without --yes it asks first, and
// refuses when nobody can answer.
func (a *App) HandleClear(args Args) error {
	count, err := a.Store.Count(a.ctx())
	if err != nil {
		return NewCommandError("clear", "count", err)
	}

	if !args.Yes {
		if a.JSON || !a.Interactive() {
			return &UsageError{Message: "clear needs --yes when not run interactively"}
		}
		question := fmt.Sprintf("Delete all %d stored analytics events?", count)
		if !PromptYesNo(a.In, a.Out, question) {
			a.println(DimStyle.Render("Cancelled."))
			return ErrCancelled
		}
	}

	if _, err := a.Tracker.ClearAnalytics(); err != nil {
		return NewCommandError("clear", "delete", err)
	}

	remaining, err := a.Store.Count(a.ctx())
	if err != nil {
		return NewCommandError("clear", "verify", err)
	}
	if remaining != 0 {
		return NewCommandError("clear", "delete", fmt.Errorf("%d events remain", remaining))
	}

	if a.JSON {
		return a.writeJSON(CmdClear, ClearResult{Removed: count})
	}
	a.printf("%s Removed %d events\n", SuccessStyle.Render("[OK]"), count)
	return nil
}
