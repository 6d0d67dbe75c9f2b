// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// Buffer batches appended text for rendering.
// Text is flushed when either:
// 1. The batch size threshold is reached (e.g., 15 appends)
// 2. The frame limiter allows another paint (e.g., 30 per second)
//
// Thread-safety: all operations are protected by a mutex.
type Buffer struct {
	mu      sync.Mutex
	buffer  strings.Builder
	pending int

	batchSize int
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewBuffer creates a buffer with the default batch size and frame rate.
func NewBuffer() *Buffer {
	return NewBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewBufferWithConfig creates a buffer with custom settings. Out of range
// values fall back to the defaults.
func NewBufferWithConfig(batchSize, maxFPS int) *Buffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return newBuffer(batchSize, maxFPS, time.Now)
}

func newBuffer(batchSize, maxFPS int, now func() time.Time) *Buffer {
	b := &Buffer{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(maxFPS), 1),
		now:       now,
	}
	// The first frame is due one interval after creation.
	b.limiter.AllowN(now(), 1)
	return b
}

// Write adds text to the buffer.
func (b *Buffer) Write(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer.WriteString(text)
	b.pending++
}

// Flush returns the buffered text if a batch is full or a frame is due.
func (b *Buffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer.Len() == 0 {
		return "", false
	}
	if b.pending < b.batchSize && !b.limiter.AllowN(b.now(), 1) {
		return "", false
	}
	return b.takeLocked(), true
}

// ForceFlush returns all buffered text regardless of thresholds. Use it when
// a turn ends or before printing a status line.
func (b *Buffer) ForceFlush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer.Len() == 0 {
		return "", false
	}
	return b.takeLocked(), true
}

// Reset discards buffered text.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buffer.Reset()
	b.pending = 0
}

// Pending returns the number of appends waiting to be flushed.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// takeLocked extracts the content and resets the buffer (caller must hold lock).
func (b *Buffer) takeLocked() string {
	content := b.buffer.String()
	b.buffer.Reset()
	b.pending = 0
	return content
}
