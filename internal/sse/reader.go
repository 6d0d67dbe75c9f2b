// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"context"
	"io"
)

// DefaultReadSize is the chunk size requested from the underlying reader.
const DefaultReadSize = 4 * 1024

// Reader pulls frames from an io.Reader one at a time.
//
// Cancellation is checked at every chunk boundary: once ctx is done, frames
// decoded from the chunk in flight are discarded and Next returns ctx.Err().
type Reader struct {
	ctx     context.Context
	src     io.Reader
	dec     *Decoder
	buf     []byte
	pending []Frame
	err     error
}

// NewReader creates a frame reader over src.
func NewReader(ctx context.Context, src io.Reader) *Reader {
	return NewReaderSize(ctx, src, DefaultReadSize, DefaultMaxLineSize)
}

// NewReaderSize creates a frame reader with explicit chunk and line limits.
func NewReaderSize(ctx context.Context, src io.Reader, readSize, maxLineSize int) *Reader {
	if ctx == nil {
		ctx = context.Background()
	}
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	return &Reader{
		ctx: ctx,
		src: src,
		dec: NewDecoderWithLimit(maxLineSize),
		buf: make([]byte, readSize),
	}
}

// Next returns the next complete frame. It returns io.EOF when the source is
// exhausted; an unterminated trailing frame is discarded. Errors are sticky.
func (r *Reader) Next() (Frame, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			r.fail(err)
			return Frame{}, err
		}

		if len(r.pending) > 0 {
			f := r.pending[0]
			r.pending = r.pending[1:]
			return f, nil
		}

		if r.err != nil {
			return Frame{}, r.err
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.dec.Feed(r.buf[:n])...)
		}
		if err != nil {
			if err == io.EOF {
				r.dec.Close()
			}
			// Frames completed before the error are still delivered.
			r.err = err
		}
	}
}

// Dropped reports oversized lines skipped by the decoder.
func (r *Reader) Dropped() int {
	return r.dec.Dropped()
}

func (r *Reader) fail(err error) {
	r.pending = nil
	r.dec.Close()
	if r.err == nil {
		r.err = err
	}
}
