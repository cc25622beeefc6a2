// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - The export command.

package cli

import (
	"fmt"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/util"
)

// ExportResult is the JSON form of an export written to a file.
type ExportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// HandleExport writes the summary and every event as one JSON document,
// to --out or to stdout. The document is already JSON, so --json only
// changes the confirmation printed after a file export.
func (a *App) HandleExport(args Args) error {
	doc := a.Tracker.ExportAnalytics() + "\n"

	if args.Out == "" {
		_, err := fmt.Fprint(a.Out, doc)
		return err
	}

	if err := util.AtomicWriteFile(args.Out, []byte(doc), 0600); err != nil {
		return NewCommandError("export", "write", err)
	}

	result := ExportResult{Path: args.Out, Bytes: len(doc)}
	if a.JSON {
		return a.writeJSON(CmdExport, result)
	}
	a.printf("%s Exported analytics to %s (%d bytes)\n",
		SuccessStyle.Render("[OK]"), result.Path, result.Bytes)
	return nil
}
