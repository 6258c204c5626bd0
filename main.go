// travelmind TUI - terminal client for a Dify-hosted travel assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/travelmind-tui/internal/cli"
	"github.com/jeranaias/travelmind-tui/internal/config"
	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/history"
	"github.com/jeranaias/travelmind-tui/internal/turn"
	"github.com/jeranaias/travelmind-tui/internal/typewriter"
	"github.com/jeranaias/travelmind-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdSession:
		// Resuming reopens the conversation in the TUI; the rest of the
		// session subcommands are plain CLI.
		if args.Subcommand == "resume" {
			runTUI(args)
			return
		}
		if err := cli.HandleSession(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	}
}

// =============================================================================
// TUI BOOTSTRAP
// =============================================================================

func runTUI(args cli.Args) {
	// The TUI owns the terminal; send log noise to a file instead.
	logFile, err := os.OpenFile(logPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	cfg := config.Global()

	store, err := history.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runner := newRunner(cfg, store, args.NoStream)
	if args.SessionID != "" {
		if err := runner.ResumeSession(args.SessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	sink := chat.NewProgramSink()
	model := chat.New(runner, sink, cfg.Theme)

	p := tea.NewProgram(model, tea.WithAltScreen())
	sink.SetProgram(p)

	// Pick up config edits made while the TUI is running.
	watcher, err := config.NewWatcher(func(updated *config.Config) {
		log.Printf("config reloaded: %s", updated)
	})
	if err == nil {
		if err := watcher.Watch(); err != nil {
			log.Printf("Warning: config watch failed: %v", err)
		}
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRunner(cfg *config.Config, store *history.Store, noStream bool) *turn.Runner {
	client := dify.NewClient(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithUser(cfg.User)
	if cfg.RequestTimeoutSecs > 0 {
		client = client.WithTimeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second)
	}

	sched := typewriter.New(time.Duration(cfg.TypingSpeed) * time.Millisecond)
	streamEnabled := cfg.StreamEnabled && !noStream
	return turn.NewRunner(client, store, sched, streamEnabled)
}

func logPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return os.DevNull
	}
	return filepath.Join(dir, "travelmind.log")
}
