// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"testing"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCmd  Command
		wantErr  bool
		validate func(*testing.T, Args)
	}{
		{
			name:    "no args defaults to summary",
			args:    nil,
			wantCmd: CmdSummary,
		},
		{
			name:    "summary with days",
			args:    []string{"summary", "--days=7"},
			wantCmd: CmdSummary,
			validate: func(t *testing.T, a Args) {
				if a.Days != 7 {
					t.Errorf("Days = %d, want 7", a.Days)
				}
			},
		},
		{
			name:    "events with filters and global json",
			args:    []string{"events", "--type", "search", "--json", "--session", "S1", "--limit", "5"},
			wantCmd: CmdEvents,
			validate: func(t *testing.T, a Args) {
				if a.Type != "search" || a.Session != "S1" || a.Limit != 5 {
					t.Errorf("got type=%q session=%q limit=%d", a.Type, a.Session, a.Limit)
				}
				if !a.JSON {
					t.Error("JSON should be set by a global flag after the command")
				}
			},
		},
		{
			name:    "events bad limit",
			args:    []string{"events", "--limit", "many"},
			wantCmd: CmdEvents,
			wantErr: true,
		},
		{
			name:    "export out alias",
			args:    []string{"export", "-o", "out.json"},
			wantCmd: CmdExport,
			validate: func(t *testing.T, a Args) {
				if a.Out != "out.json" {
					t.Errorf("Out = %q, want out.json", a.Out)
				}
			},
		},
		{
			name:    "clear yes",
			args:    []string{"clear", "-y"},
			wantCmd: CmdClear,
			validate: func(t *testing.T, a Args) {
				if !a.Yes {
					t.Error("Yes should be true")
				}
			},
		},
		{
			name:    "ingest from file with session",
			args:    []string{"ingest", "--file", "events.jsonl", "--session=abc"},
			wantCmd: CmdIngest,
			validate: func(t *testing.T, a Args) {
				if a.File != "events.jsonl" || a.Session != "abc" {
					t.Errorf("File = %q, Session = %q", a.File, a.Session)
				}
			},
		},
		{
			name:    "global db and config",
			args:    []string{"--db", "/tmp/a.db", "--config=/tmp/c.toml", "status"},
			wantCmd: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.DBPath != "/tmp/a.db" || a.ConfigPath != "/tmp/c.toml" {
					t.Errorf("DBPath = %q, ConfigPath = %q", a.DBPath, a.ConfigPath)
				}
			},
		},
		{
			name:    "config set joins value",
			args:    []string{"config", "set", "logging.file", "my", "log.txt"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" || a.ConfigKey != "logging.file" || a.ConfigVal != "my log.txt" {
					t.Errorf("got %q %q %q", a.Subcommand, a.ConfigKey, a.ConfigVal)
				}
			},
		},
		{
			name:    "config defaults to show",
			args:    []string{"config"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "show" {
					t.Errorf("Subcommand = %q, want show", a.Subcommand)
				}
			},
		},
		{
			name:    "config get without key",
			args:    []string{"config", "get"},
			wantCmd: CmdConfig,
			wantErr: true,
		},
		{
			name:    "unknown command",
			args:    []string{"launch"},
			wantCmd: CmdHelp,
			wantErr: true,
		},
		{
			name:    "version",
			args:    []string{"version"},
			wantCmd: CmdVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.args)
			if cmd != tt.wantCmd {
				t.Errorf("command = %v, want %v", cmd, tt.wantCmd)
			}
			if (args.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", args.Err, tt.wantErr)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"cancelled", ErrCancelled, ExitCancelled},
		{"config", config.ValidateErrors{{Field: "logging.level", Message: "bad"}}, ExitConfigError},
		{"storage", NewCommandError("summary", "compute", &storage.TrackingError{Op: "open", Err: storage.ErrUnavailable}), ExitStorageError},
		{"clear dropped", NewCommandError("clear", "delete", &storage.TrackingError{Op: "clear", Err: storage.ErrQueueFull}), ExitStorageError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	if CmdIngest.String() != "ingest" {
		t.Errorf("CmdIngest.String() = %q", CmdIngest.String())
	}
	if Command(99).String() != "help" {
		t.Errorf("unknown command should render as help")
	}
}
