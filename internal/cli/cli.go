// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing for cosmos-analytics.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdSummary Command = iota
	CmdEvents
	CmdExport
	CmdClear
	CmdIngest
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name used in usage and JSON output.
func (c Command) String() string {
	switch c {
	case CmdSummary:
		return "summary"
	case CmdEvents:
		return "events"
	case CmdExport:
		return "export"
	case CmdClear:
		return "clear"
	case CmdIngest:
		return "ingest"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	DBPath     string
	NoColor    bool
	Verbose    bool
	JSON       bool

	// Command-specific
	Type       string
	Session    string
	Limit      int
	Days       int
	Out        string
	File       string
	Yes        bool
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Err records a flag the command parser could not accept.
	Err error

	Raw []string
}

const usageText = `cosmos-analytics %s - privacy-preserving local usage analytics

Usage:
  cosmos-analytics [global flags] <command> [flags]

Commands:
  summary                       Show the analytics summary (default)
    --days N                    Also show daily activity for the last N days
  events                        List stored events, oldest first
    --type TYPE                 Only events of TYPE (page_view, search, ...)
    --session ID                Only events of one session
    --limit N                   Show at most N events (newest N)
  export                        Write summary and events as JSON
    --out FILE                  Write to FILE instead of stdout
  clear                         Delete every stored event
    -y, --yes                   Skip the confirmation prompt
  ingest                        Record events read as JSON lines
    --file FILE                 Read from FILE instead of stdin
    --session ID                Record under this session id
  status                        Show store and privacy status
  config show                   Show the effective configuration
  config get <key>              Print one setting
  config set <key> <value>      Change one setting and save it
  config path                   Print the config file path
  config keys                   List every setting key
  version                       Show version information
  help                          Show this help

Global Flags:
  --config FILE                 Use FILE instead of ~/.cosmos/config.toml
  --db FILE                     Use FILE as the event store
  --json                        Machine-readable output
  --no-color                    Disable colored output
  -v, --verbose                 Debug logging to stderr

Ingest line format:
  {"eventType":"search","data":{"query":"nebula","resultCount":3},
   "context":{"path":"/explore"}}

Environment:
  COSMOS_DB_PATH, COSMOS_DO_NOT_TRACK, DNT, COSMOS_LOG_LEVEL,
  COSMOS_LOG_FORMAT, NO_COLOR, FORCE_COLOR
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fprintUsage(os.Stdout)
}

func fprintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fprintVersion(os.Stdout)
}

func fprintVersion(w io.Writer) {
	fmt.Fprintf(w, "cosmos-analytics version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// CurrentVersion returns the build's version information.
func CurrentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument list (without the program name).
func ParseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdSummary, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "summary", "sum":
		parseSummaryArgs(&parsedArgs, remaining)
		return CmdSummary, parsedArgs

	case "events", "list", "ls":
		parseEventsArgs(&parsedArgs, remaining)
		return CmdEvents, parsedArgs

	case "export":
		parseExportArgs(&parsedArgs, remaining)
		return CmdExport, parsedArgs

	case "clear", "reset":
		parseClearArgs(&parsedArgs, remaining)
		return CmdClear, parsedArgs

	case "ingest", "track":
		parseIngestArgs(&parsedArgs, remaining)
		return CmdIngest, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version", "-V":
		return CmdVersion, parsedArgs

	case "help", "--help", "-h":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Err = &UsageError{Message: fmt.Sprintf("unknown command %q", cmd)}
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags pulls flags valid for every command out of args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "--no-color":
			parsedArgs.NoColor = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		case "--db":
			if i+1 < len(args) {
				i++
				parsedArgs.DBPath = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--db="):
				parsedArgs.DBPath = strings.TrimPrefix(arg, "--db=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// flagValue returns the value of a "--name value" or "--name=value" flag
// at remaining[*i], advancing i past a separate value.
func flagValue(remaining []string, i *int, name string) (string, bool) {
	arg := remaining[*i]
	if strings.HasPrefix(arg, name+"=") {
		return strings.TrimPrefix(arg, name+"="), true
	}
	if arg == name && *i+1 < len(remaining) {
		*i++
		return remaining[*i], true
	}
	return "", false
}

func parsePositive(args *Args, flag, value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		args.Err = &UsageError{Message: fmt.Sprintf("%s expects a non-negative integer, got %q", flag, value)}
		return 0
	}
	return n
}

func unexpected(args *Args, arg string) {
	if args.Err == nil {
		args.Err = &UsageError{Message: fmt.Sprintf("unexpected argument %q", arg)}
	}
}

func parseSummaryArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		if v, ok := flagValue(remaining, &i, "--days"); ok {
			args.Days = parsePositive(args, "--days", v)
			continue
		}
		unexpected(args, remaining[i])
	}
}

func parseEventsArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		if v, ok := flagValue(remaining, &i, "--type"); ok {
			args.Type = v
			continue
		}
		if v, ok := flagValue(remaining, &i, "--session"); ok {
			args.Session = v
			continue
		}
		if v, ok := flagValue(remaining, &i, "--limit"); ok {
			args.Limit = parsePositive(args, "--limit", v)
			continue
		}
		unexpected(args, remaining[i])
	}
}

func parseExportArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		if v, ok := flagValue(remaining, &i, "--out"); ok {
			args.Out = v
			continue
		}
		if v, ok := flagValue(remaining, &i, "-o"); ok {
			args.Out = v
			continue
		}
		unexpected(args, remaining[i])
	}
}

func parseClearArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		switch arg {
		case "-y", "--yes", "--confirm":
			args.Yes = true
		default:
			unexpected(args, arg)
		}
	}
}

func parseIngestArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		if v, ok := flagValue(remaining, &i, "--file"); ok {
			args.File = v
			continue
		}
		if v, ok := flagValue(remaining, &i, "--session"); ok {
			args.Session = v
			continue
		}
		// "-" means stdin
		if remaining[i] == "-" {
			args.File = ""
			continue
		}
		unexpected(args, remaining[i])
	}
}

// parseConfigArgs parses "config [show|get|set|path|keys] ...".
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])

	switch args.Subcommand {
	case "get":
		if len(remaining) < 2 {
			args.Err = &UsageError{Message: "config get requires a key"}
			return
		}
		args.ConfigKey = remaining[1]
	case "set":
		if len(remaining) < 3 {
			args.Err = &UsageError{Message: "config set requires a key and a value"}
			return
		}
		args.ConfigKey = remaining[1]
		args.ConfigVal = strings.Join(remaining[2:], " ")
	case "show", "path", "keys":
	default:
		args.Err = &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand)}
	}
}
