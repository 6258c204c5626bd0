// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter paces text deltas into small timed increments.
//
// The pacing is purely a UX affordance: the accumulated text delivered to
// the sink is identical regardless of timing, and cancellation takes
// effect within one pacing interval rather than only between whole deltas.
package typewriter

import (
	"context"
	"time"
)

// DefaultInterval is the delay between increments when none is configured.
const DefaultInterval = 30 * time.Millisecond

// Scheduler re-emits text deltas as a paced sequence of fixed-size
// increments. The zero value emits everything immediately.
type Scheduler struct {
	// Interval is the delay between increments. Zero disables pacing:
	// deltas pass through whole.
	Interval time.Duration

	// ChunkSize is the number of runes per increment. Values below 1 are
	// treated as 1.
	ChunkSize int
}

// New creates a scheduler with the given interval and single-rune chunks.
func New(interval time.Duration) *Scheduler {
	return &Scheduler{Interval: interval, ChunkSize: 1}
}

// Type paces one delta through emit. Returns ctx.Err() if cancelled
// mid-delta; increments already emitted stay emitted.
func (s *Scheduler) Type(ctx context.Context, delta string, emit func(string)) error {
	if delta == "" {
		return nil
	}

	if s.Interval <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(delta)
		return nil
	}

	chunk := s.ChunkSize
	if chunk < 1 {
		chunk = 1
	}

	runes := []rune(delta)
	timer := time.NewTimer(0) // first increment is immediate
	defer timer.Stop()

	for start := 0; start < len(runes); start += chunk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		end := start + chunk
		if end > len(runes) {
			end = len(runes)
		}
		emit(string(runes[start:end]))

		timer.Reset(s.Interval)
	}
	return nil
}

// Run drains a channel of deltas through Type until the channel closes or
// the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, deltas <-chan string, emit func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delta, ok := <-deltas:
			if !ok {
				return nil
			}
			if err := s.Type(ctx, delta, emit); err != nil {
				return err
			}
		}
	}
}
