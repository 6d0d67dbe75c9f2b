// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the line-framed event stream sent by the chat backend.
//
// The backend writes frames of the form
//
//	event: content
//	data: {"text":"Hi"}
//	<blank line>
//
// and the network is free to split those bytes anywhere. Decoder keeps the
// incomplete tail of the last chunk between calls so that frames are emitted
// identically no matter how the stream was chunked.
package sse

import (
	"bytes"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultMaxLineSize bounds a single line held in the residual buffer (1MB).
// Longer lines are dropped whole instead of growing the buffer without limit.
const DefaultMaxLineSize = 1024 * 1024

var (
	eventPrefix = []byte("event:")
	dataPrefix  = []byte("data:")
)

// =============================================================================
// FRAME
// =============================================================================

// Frame is one (event name, payload) unit delimited by a blank line.
type Frame struct {
	Event string
	Data  []byte
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns arbitrary byte chunks into frames. It never fails: lines it
// does not understand are skipped so the rest of the stream stays usable.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	residual    []byte
	event       string
	data        []byte
	maxLineSize int

	// skipping is set while discarding the remainder of an oversized line.
	skipping bool
	dropped  int
}

// NewDecoder creates a decoder with the default line limit.
func NewDecoder() *Decoder {
	return &Decoder{maxLineSize: DefaultMaxLineSize}
}

// NewDecoderWithLimit creates a decoder with a custom line limit.
// Non-positive limits fall back to DefaultMaxLineSize.
func NewDecoderWithLimit(maxLineSize int) *Decoder {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	return &Decoder{maxLineSize: maxLineSize}
}

// Feed appends a chunk and returns every frame completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Frame {
	var frames []Frame

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			d.holdBack(chunk)
			break
		}

		part := chunk[:i]
		chunk = chunk[i+1:]

		if d.skipping {
			// Tail of an oversized line; the newline ends it.
			d.skipping = false
			continue
		}

		var line []byte
		if len(d.residual) > 0 {
			line = append(d.residual, part...)
			d.residual = d.residual[:0]
		} else {
			line = part
		}
		if len(line) > d.maxLineSize {
			d.dropped++
			continue
		}

		if f, ok := d.processLine(bytes.TrimSuffix(line, []byte("\r"))); ok {
			frames = append(frames, f)
		}
	}

	return frames
}

// Close discards the residual line and any half-built frame. A final frame
// without its blank-line terminator is never emitted.
func (d *Decoder) Close() {
	d.residual = nil
	d.event = ""
	d.data = nil
	d.skipping = false
}

// Dropped returns how many oversized lines were discarded.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// holdBack keeps an incomplete line for the next Feed call.
func (d *Decoder) holdBack(part []byte) {
	if d.skipping {
		return
	}
	if len(d.residual)+len(part) > d.maxLineSize {
		d.residual = d.residual[:0]
		d.skipping = true
		d.dropped++
		return
	}
	d.residual = append(d.residual, part...)
}

// processLine applies one complete line to the frame being built.
func (d *Decoder) processLine(line []byte) (Frame, bool) {
	switch {
	case len(line) == 0:
		if d.event == "" || len(d.data) == 0 {
			return Frame{}, false
		}
		f := Frame{Event: d.event, Data: d.data}
		d.event = ""
		d.data = nil
		return f, true

	case bytes.HasPrefix(line, eventPrefix):
		d.event = string(fieldValue(line[len(eventPrefix):]))

	case bytes.HasPrefix(line, dataPrefix):
		// Copy: line may alias the residual buffer, which is reused.
		d.data = append([]byte(nil), fieldValue(line[len(dataPrefix):])...)
	}

	// id:, retry:, comments and unknown lines are ignored
	return Frame{}, false
}

// fieldValue strips the single optional space that follows the field colon.
func fieldValue(v []byte) []byte {
	if len(v) > 0 && v[0] == ' ' {
		return v[1:]
	}
	return v
}
