// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"time"
)

// Stats holds counters collected while a stream is decoded.
type Stats struct {
	// Timing
	StartedAt   time.Time
	FirstTextAt time.Time
	EndedAt     time.Time

	// Frames counts every non-empty line handed to the decoder.
	Frames    int
	Skipped   int
	Malformed int

	// Deltas and Bytes count emitted text only.
	Deltas int
	Bytes  int
}

// TTFT is the time from open to the first text delta, or 0 if none
// arrived.
func (s Stats) TTFT() time.Duration {
	if s.FirstTextAt.IsZero() {
		return 0
	}
	return s.FirstTextAt.Sub(s.StartedAt)
}

// Duration is the time from open to the end of decoding, or to now while
// the stream is still running.
func (s Stats) Duration() time.Duration {
	end := s.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// DeltasPerSecond is the emission rate over the stream's lifetime.
func (s Stats) DeltasPerSecond() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Deltas) / d
}

// Format returns a one-line summary for status output.
func (s Stats) Format() string {
	out := fmt.Sprintf("%.1fs | %d deltas | %.1f deltas/s | TTFT %dms",
		s.Duration().Seconds(), s.Deltas, s.DeltasPerSecond(), s.TTFT().Milliseconds())
	if s.Malformed > 0 {
		out += fmt.Sprintf(" | %d malformed", s.Malformed)
	}
	return out
}
