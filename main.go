// cosmos-analytics - Privacy-preserving local usage analytics.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

// run executes one command and returns the process exit code. Deferred
// cleanup runs before main exits.
func run() int {
	cmd, args := cli.Parse()

	if args.Err != nil {
		cli.DisplayError(os.Stderr, cmd, args.Err, args.JSON)
		fmt.Fprintln(os.Stderr, "Run 'cosmos-analytics help' for usage.")
		return cli.GetExitCode(args.Err)
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage()
		return cli.ExitSuccess
	case cli.CmdVersion:
		if args.JSON {
			if err := cli.NewJSONResponse(cmd.String(), cli.CurrentVersion()).Write(os.Stdout); err != nil {
				return cli.ExitGeneralError
			}
			return cli.ExitSuccess
		}
		cli.PrintVersion()
		return cli.ExitSuccess
	}

	app, err := cli.NewApp(args)
	if err != nil {
		cli.DisplayError(os.Stderr, cmd, err, args.JSON)
		return cli.ExitConfigError
	}
	defer app.Close()

	// Route to appropriate handler
	switch cmd {
	case cli.CmdSummary:
		err = app.HandleSummary(args)
	case cli.CmdEvents:
		err = app.HandleEvents(args)
	case cli.CmdExport:
		err = app.HandleExport(args)
	case cli.CmdClear:
		err = app.HandleClear(args)
	case cli.CmdIngest:
		err = app.HandleIngest(args)
	case cli.CmdStatus:
		err = app.HandleStatus(args)
	case cli.CmdConfig:
		err = app.HandleConfig(args)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, cmd, err, args.JSON)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
