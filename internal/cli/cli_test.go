// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"reflect"
	"testing"
)

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"export", "sess_1", "--format", "json", "--confirm", "--since=2026-01-01"})

	if p.Subcommand() != "export" {
		t.Errorf("Subcommand() = %q, want export", p.Subcommand())
	}
	if got := p.Positional(); !reflect.DeepEqual(got, []string{"export", "sess_1"}) {
		t.Errorf("Positional() = %v", got)
	}
	if p.Flag("format") != "json" {
		t.Errorf("Flag(format) = %q", p.Flag("format"))
	}
	if p.Flag("since") != "2026-01-01" {
		t.Errorf("Flag(since) = %q", p.Flag("since"))
	}
	if !p.BoolFlag("confirm") {
		t.Error("BoolFlag(confirm) = false")
	}
	if p.BoolFlag("json") {
		t.Error("unset bool flag must be false")
	}
}

func TestArgParserRepeatedFlags(t *testing.T) {
	p := NewArgParser([]string{"--file", "a.jpg", "--file", "b.pdf"})
	if got := p.FlagValues("file"); !reflect.DeepEqual(got, []string{"a.jpg", "b.pdf"}) {
		t.Errorf("FlagValues(file) = %v", got)
	}
	if p.Flag("file") != "b.pdf" {
		t.Errorf("Flag(file) = %q, want last value", p.Flag("file"))
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--confirm=true"})
	if p.BoolFlag("json") {
		t.Error("--json=false must parse as false")
	}
	if !p.BoolFlag("confirm") {
		t.Error("--confirm=true must parse as true")
	}
}

func TestArgParserFlagOr(t *testing.T) {
	p := NewArgParser([]string{"export"})
	if got := p.FlagOr("format", "md"); got != "md" {
		t.Errorf("FlagOr default = %q, want md", got)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	remaining, args := parseGlobalFlags([]string{"--no-stream", "ask", "hi", "--json"})
	if !args.NoStream || !args.JSON {
		t.Errorf("global flags not picked up: %+v", args)
	}
	if !reflect.DeepEqual(remaining, []string{"ask", "hi"}) {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestParseAskArgs(t *testing.T) {
	var args Args
	parseAskArgs(&args, []string{"plan", "a", "trip", "--file", "map.png"})
	if args.Query != "plan a trip" {
		t.Errorf("Query = %q", args.Query)
	}
	if !reflect.DeepEqual(args.Files, []string{"map.png"}) {
		t.Errorf("Files = %v", args.Files)
	}
}

func TestParseSessionArgs(t *testing.T) {
	var args Args
	parseSessionArgs(&args, []string{"delete", "sess_42", "--confirm"})
	if args.Subcommand != "delete" || args.SessionID != "sess_42" || !args.Confirm {
		t.Errorf("session args = %+v", args)
	}
	if args.Format != "md" {
		t.Errorf("default format = %q, want md", args.Format)
	}

	var resume Args
	parseSessionArgs(&resume, []string{"resume", "sess_7"})
	if resume.Subcommand != "resume" || resume.SessionID != "sess_7" {
		t.Errorf("resume args = %+v", resume)
	}
}
