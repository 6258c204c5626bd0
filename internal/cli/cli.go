// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for travelmind.
package cli

import (
	"fmt"
	"os"
	"runtime"
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
	CmdTUI Command = iota
	CmdAsk
	CmdSession
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	NoStream bool // force blocking requests
	JSON     bool // output in JSON format

	// Command-specific
	Query      string
	Subcommand string
	SessionID  string
	Format     string
	Confirm    bool
	Files      []string // attachment paths for ask

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `travelmind - travel planning assistant in your terminal

TravelMind is a chat client for a Dify-hosted travel assistant.

Usage:
  travelmind                      Start TUI (default)
  travelmind ask "question"       Ask a single question
    --file PATH                   Attach a file or image (repeatable)
    --no-stream                   Use a blocking request
  travelmind session [subcommand] Manage saved conversations
  travelmind config [show|set]    Configuration
  travelmind version              Show version
  travelmind help                 Show this help

Session Commands:
  travelmind session list             List saved conversations
  travelmind session show <id>        Show a conversation transcript
  travelmind session search <query>   Search titles and content
  travelmind session resume <id>      Reopen a conversation in the TUI
  travelmind session export <id>      Export a conversation
    --format md|json                  Export format (default: md)
  travelmind session delete <id>      Delete a conversation
    --confirm                         Required confirmation flag
  travelmind session delete-all       Delete all conversations
    --confirm                         Required confirmation flag

Config Commands:
  travelmind config show              Show configuration (API key redacted)
  travelmind config get <key>         Print one value
  travelmind config set <key> <val>   Update and save a value
  travelmind config path              Print the config file location

  Keys: api_key, base_url, stream_enabled, typing_speed, user,
        request_timeout_secs, history_limit, theme

Environment:
  TRAVELMIND_API_KEY, TRAVELMIND_BASE_URL, TRAVELMIND_STREAM,
  TRAVELMIND_TYPING_SPEED, TRAVELMIND_USER, TRAVELMIND_TIMEOUT_SECS`

// Parse reads os.Args and returns the command with its arguments.
func Parse() (Command, Args) {
	args := os.Args[1:]
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "ask":
		parseAskArgs(&parsed, remaining)
		return CmdAsk, parsed

	case "session", "sessions", "history":
		parseSessionArgs(&parsed, remaining)
		return CmdSession, parsed

	case "config":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdConfig, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Unknown word: treat the whole line as an ask query.
		parsed.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsed
	}
}

func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	var remaining []string
	for _, arg := range args {
		switch arg {
		case "--no-stream":
			parsed.NoStream = true
		case "--json":
			parsed.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

func parseAskArgs(parsed *Args, remaining []string) {
	p := NewArgParser(remaining)
	parsed.Query = strings.Join(p.Positional(), " ")
	parsed.Files = p.FlagValues("file")
}

func parseSessionArgs(parsed *Args, remaining []string) {
	p := NewArgParser(remaining)
	parsed.Subcommand = p.Subcommand()
	if rest := p.Positional(); len(rest) > 1 {
		parsed.SessionID = rest[1]
	}
	parsed.Format = p.FlagOr("format", "md")
	parsed.Confirm = p.BoolFlag("confirm")
	if p.BoolFlag("json") {
		parsed.JSON = true
	}
}

// HandleVersion prints version information.
func HandleVersion(_ Args) {
	fmt.Printf("travelmind %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// HandleHelp prints usage.
func HandleHelp(_ Args) {
	fmt.Println(usageText)
}
