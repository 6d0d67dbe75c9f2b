// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package think separates a model's private reasoning spans from the text
// meant for the user.
//
// Reasoning models wrap their chain of thought in markers such as
// <think>...</think>. Because a marker can be split across network chunks,
// extraction always runs over the whole accumulated text, never over the
// latest increment alone.
package think

import (
	"strings"
	"unicode"
)

// Default reasoning markers.
const (
	DefaultOpen  = "<think>"
	DefaultClose = "</think>"
)

// Result is the outcome of one extraction.
type Result struct {
	// Visible is the text the user should see.
	Visible string
	// Thinking is true while an opened span has not been closed yet.
	Thinking bool
}

// Extractor strips reasoning spans delimited by Open and Close.
type Extractor struct {
	Open  string
	Close string
}

// Default is the extractor for <think> markers.
var Default = Extractor{Open: DefaultOpen, Close: DefaultClose}

// New returns an extractor for custom markers. Empty markers fall back to
// the defaults.
func New(open, close string) Extractor {
	if open == "" {
		open = DefaultOpen
	}
	if close == "" {
		close = DefaultClose
	}
	return Extractor{Open: open, Close: close}
}

// Extract runs the default extractor.
func Extract(raw string, streaming bool) Result {
	return Default.Extract(raw, streaming)
}

// Extract returns the visible part of raw.
//
// Completed spans are removed along with their markers and the whitespace
// right after the closing marker. A span that is still open hides everything
// after its opening marker while streaming; on the final pass
// (streaming=false) it is kept as ordinary content. While streaming, a
// trailing fragment of either marker is held back so visible text only ever
// grows.
//
// Extract is idempotent: feeding Visible back in returns it unchanged.
// Removing a span can reassemble a marker from the text around it, so passes
// repeat until one leaves the text unchanged. A pass never adds text, so the
// loop ends.
func (e Extractor) Extract(raw string, streaming bool) Result {
	if e.Open == "" || e.Close == "" {
		e = Default
	}

	res := e.pass(raw, streaming)
	for {
		next := e.pass(res.Visible, streaming)
		if next.Visible == res.Visible {
			break
		}
		res.Visible = next.Visible
		res.Thinking = res.Thinking || next.Thinking
	}
	return res
}

// pass performs a single left-to-right scan.
func (e Extractor) pass(raw string, streaming bool) Result {
	var out strings.Builder
	out.Grow(len(raw))

	rest := raw
	for {
		open := strings.Index(rest, e.Open)
		if open < 0 {
			out.WriteString(e.stripStrayClose(rest))
			break
		}
		out.WriteString(e.stripStrayClose(rest[:open]))

		body := rest[open+len(e.Open):]
		end := strings.Index(body, e.Close)
		if end < 0 {
			if streaming {
				return Result{Visible: out.String(), Thinking: true}
			}
			// Never closed: keep the finished text rather than hide it.
			out.WriteString(rest[open:])
			return Result{Visible: out.String()}
		}

		rest = strings.TrimLeftFunc(body[end+len(e.Close):], unicode.IsSpace)
	}

	visible := out.String()
	if streaming {
		visible = e.holdPartial(visible)
	}
	return Result{Visible: visible}
}

// stripStrayClose removes closing markers that have no opener.
func (e Extractor) stripStrayClose(s string) string {
	if !strings.Contains(s, e.Close) {
		return s
	}
	return strings.ReplaceAll(s, e.Close, "")
}

// holdPartial trims the longest trailing proper prefix of either marker.
// "<th" may open a reasoning span and "</thi" may become a stray closer
// that gets stripped, so neither is shown until more text arrives.
func (e Extractor) holdPartial(s string) string {
	n := partialSuffix(s, e.Open)
	if m := partialSuffix(s, e.Close); m > n {
		n = m
	}
	return s[:len(s)-n]
}

// partialSuffix returns the length of the longest proper prefix of marker
// that s ends with.
func partialSuffix(s, marker string) int {
	max := len(marker) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
