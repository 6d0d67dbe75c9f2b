// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ID SOURCE
// =============================================================================

// Stamp identifies one produced message.
type Stamp struct {
	ID       string
	Sequence int
	At       time.Time
}

// IDSource hands out message identity: an id, the next sequence number and
// the creation time. Implementations are owned by a controller and injected,
// so tests can make identity deterministic.
type IDSource interface {
	Next() Stamp
}

// Sequencer is the standard IDSource: a clock plus a counter.
type Sequencer struct {
	mu    sync.Mutex
	seq   int
	clock func() time.Time
	newID func() string
}

// NewSequencer creates a Sequencer using wall-clock time and UUID ids.
// The first stamp carries sequence start.
func NewSequencer(start int) *Sequencer {
	return NewSequencerWith(time.Now, func() string { return "msg_" + uuid.NewString() }, start)
}

// NewSequencerWith creates a Sequencer with an explicit clock and id func.
func NewSequencerWith(clock func() time.Time, newID func() string, start int) *Sequencer {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Sequencer{seq: start, clock: clock, newID: newID}
}

// Next returns the next stamp. Safe for concurrent use.
func (s *Sequencer) Next() Stamp {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stamp{ID: s.newID(), Sequence: s.seq, At: s.clock()}
	s.seq++
	return st
}

// Clock returns the sequencer's time source.
func (s *Sequencer) Clock() func() time.Time {
	return s.clock
}
