// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask "question" [--file PATH]...
//
// Sends a single question, streams the answer to stdout, and saves the
// exchange as a session. Attachments upload first; a failed upload prints
// a warning and the question still goes out text-only.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/travelmind-tui/internal/config"
	"github.com/jeranaias/travelmind-tui/internal/dify"
	"github.com/jeranaias/travelmind-tui/internal/history"
	"github.com/jeranaias/travelmind-tui/internal/turn"
	"github.com/jeranaias/travelmind-tui/internal/typewriter"
)

// =============================================================================
// STDOUT SINK
// =============================================================================

// stdoutSink streams turn events straight to the terminal.
type stdoutSink struct{}

func (stdoutSink) Delta(text string) {
	fmt.Print(text)
}

func (stdoutSink) FileReceived(f dify.RemoteFile) {
	fmt.Fprintf(os.Stderr, "\n[attachment] %s (%s)\n", f.Name, f.Kind)
}

func (stdoutSink) Warning(msg string) {
	fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
}

func (stdoutSink) Completed(string) {
	fmt.Println()
}

func (stdoutSink) Failed(reason, partial string) {
	if partial != "" {
		fmt.Println()
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", reason)
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk runs a one-shot question and exits non-zero on failure.
func HandleAsk(args Args) {
	if args.Query == "" && len(args.Files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: travelmind ask \"question\" [--file PATH]")
		os.Exit(2)
	}

	cfg := config.Global()
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "no API key configured; run: travelmind config set api_key <key>")
		os.Exit(1)
	}

	store, err := history.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	client := dify.NewClient(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithUser(cfg.User)
	if cfg.RequestTimeoutSecs > 0 {
		client = client.WithTimeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second)
	}

	// Typewriter pacing only makes sense on an interactive terminal.
	interval := time.Duration(cfg.TypingSpeed) * time.Millisecond
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		interval = 0
	}

	streamEnabled := cfg.StreamEnabled && !args.NoStream
	runner := turn.NewRunner(client, store, typewriter.New(interval), streamEnabled)

	var attachments []dify.Attachment
	for _, path := range args.Files {
		attachments = append(attachments, dify.Attachment{
			Path: path,
			Name: filepath.Base(path),
		})
	}

	state, err := runner.Submit(context.Background(), args.Query, attachments, stdoutSink{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if state != turn.StateCompleted {
		os.Exit(1)
	}
}
