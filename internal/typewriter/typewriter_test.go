// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typewriter

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTypeZeroIntervalPassthrough(t *testing.T) {
	s := &Scheduler{Interval: 0}

	var got []string
	err := s.Type(context.Background(), "hello world", func(chunk string) {
		got = append(got, chunk)
	})
	if err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	if len(got) != 1 || got[0] != "hello world" {
		t.Errorf("zero interval should emit whole delta, got %v", got)
	}
}

func TestTypeSingleRuneIncrements(t *testing.T) {
	s := New(time.Millisecond)

	var got []string
	err := s.Type(context.Background(), "héllo", func(chunk string) {
		got = append(got, chunk)
	})
	if err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 increments, got %d: %v", len(got), got)
	}
	// Multi-byte runes must never split.
	if got[1] != "é" {
		t.Errorf("increment 1 = %q", got[1])
	}
	if joined := strings.Join(got, ""); joined != "héllo" {
		t.Errorf("accumulated = %q", joined)
	}
}

func TestTypeChunkSize(t *testing.T) {
	s := &Scheduler{Interval: time.Millisecond, ChunkSize: 3}

	var got []string
	err := s.Type(context.Background(), "abcdefgh", func(chunk string) {
		got = append(got, chunk)
	})
	if err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	want := []string{"abc", "def", "gh"}
	if len(got) != len(want) {
		t.Fatalf("increments = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("increment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTypeCancelledMidDelta(t *testing.T) {
	s := New(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	err := s.Type(ctx, strings.Repeat("x", 1000), func(chunk string) {
		count++
		if count == 3 {
			cancel()
		}
	})

	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// Cancel takes effect within one pacing interval: at most one more
	// increment may slip out after the cancel.
	if count > 4 {
		t.Errorf("emitted %d increments after cancel", count)
	}
}

func TestTypeEmptyDelta(t *testing.T) {
	s := New(time.Millisecond)
	called := false
	if err := s.Type(context.Background(), "", func(string) { called = true }); err != nil {
		t.Fatalf("Type failed: %v", err)
	}
	if called {
		t.Error("empty delta should emit nothing")
	}
}

func TestRunDrainsChannel(t *testing.T) {
	s := &Scheduler{Interval: 0}

	deltas := make(chan string, 3)
	deltas <- "one "
	deltas <- "two "
	deltas <- "three"
	close(deltas)

	var sb strings.Builder
	if err := s.Run(context.Background(), deltas, func(chunk string) {
		sb.WriteString(chunk)
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sb.String() != "one two three" {
		t.Errorf("accumulated = %q", sb.String())
	}
}

func TestRunCancelled(t *testing.T) {
	s := New(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deltas := make(chan string)
	if err := s.Run(ctx, deltas, func(string) {}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAccumulationIndependentOfTiming(t *testing.T) {
	// The same delta sequence must accumulate identically with and
	// without pacing.
	deltaSeq := []string{"Trav", "el", "Mind", " rocks"}

	run := func(s *Scheduler) string {
		var sb strings.Builder
		for _, d := range deltaSeq {
			if err := s.Type(context.Background(), d, func(chunk string) {
				sb.WriteString(chunk)
			}); err != nil {
				t.Fatalf("Type failed: %v", err)
			}
		}
		return sb.String()
	}

	instant := run(&Scheduler{Interval: 0})
	paced := run(&Scheduler{Interval: time.Millisecond, ChunkSize: 2})
	if instant != paced {
		t.Errorf("timing changed the text: %q vs %q", instant, paced)
	}
	if instant != "TravelMind rocks" {
		t.Errorf("accumulated = %q", instant)
	}
}
