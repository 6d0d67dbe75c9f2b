// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing information for one turn.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	// Derived on Finalize
	TTFT          time.Duration
	TotalDuration time.Duration
}

// NewStatistics creates Statistics starting at now.
func NewStatistics(now time.Time) Statistics {
	return Statistics{StartTime: now}
}

// RecordFirstToken records when visible text first arrived.
func (s *Statistics) RecordFirstToken(now time.Time) {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = now
		s.TTFT = now.Sub(s.StartTime)
	}
}

// Finalize computes the final durations.
func (s *Statistics) Finalize(now time.Time) {
	s.EndTime = now
	s.TotalDuration = now.Sub(s.StartTime)
}

// Format returns e.g. "2.5s | TTFT 234ms | 128 tokens".
func (s Statistics) Format(usage Usage) string {
	total := fmt.Sprintf("%.1fs", s.TotalDuration.Seconds())
	if s.TotalDuration < time.Second {
		total = fmt.Sprintf("%dms", s.TotalDuration.Milliseconds())
	}
	out := total
	if !s.FirstTokenTime.IsZero() {
		out += fmt.Sprintf(" | TTFT %dms", s.TTFT.Milliseconds())
	}
	if usage.Total() > 0 {
		out += fmt.Sprintf(" | %d tokens", usage.OutputTokens)
	}
	return out
}
