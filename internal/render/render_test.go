// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/turn"
)

// fakeClock is advanced manually by tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// =============================================================================
// BUFFER TESTS
// =============================================================================

func TestBufferWrite(t *testing.T) {
	b := NewBuffer()

	b.Write("Hello")
	b.Write(" ")
	b.Write("World")
	b.Write("")

	if pending := b.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending appends, got %d", pending)
	}
}

func TestBufferFlushBySize(t *testing.T) {
	clock := newFakeClock()
	b := newBuffer(3, 30, clock.now)

	b.Write("A")
	b.Write("B")
	if _, ok := b.Flush(); ok {
		t.Error("Should not flush before reaching batch size")
	}

	b.Write("C")
	content, ok := b.Flush()
	if !ok {
		t.Fatal("Should flush after reaching batch size")
	}
	if content != "ABC" {
		t.Errorf("Expected flushed content 'ABC', got '%s'", content)
	}
	if pending := b.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending after flush, got %d", pending)
	}
}

func TestBufferFlushByTime(t *testing.T) {
	clock := newFakeClock()
	b := newBuffer(100, 10, clock.now)

	b.Write("A")
	if _, ok := b.Flush(); ok {
		t.Error("Should not flush before a frame is due")
	}

	clock.advance(100 * time.Millisecond)
	content, ok := b.Flush()
	if !ok || content != "A" {
		t.Errorf("Expected time-based flush of 'A', got %q (%v)", content, ok)
	}

	b.Write("B")
	if _, ok := b.Flush(); ok {
		t.Error("Should not flush twice within one frame")
	}
}

func TestBufferForceFlushAndReset(t *testing.T) {
	b := NewBufferWithConfig(100, 30)

	if _, ok := b.ForceFlush(); ok {
		t.Error("Empty buffer should not flush")
	}

	b.Write("partial")
	content, ok := b.ForceFlush()
	if !ok || content != "partial" {
		t.Errorf("Expected forced flush of 'partial', got %q", content)
	}

	b.Write("discard")
	b.Reset()
	if _, ok := b.ForceFlush(); ok {
		t.Error("Reset buffer should be empty")
	}
}

func TestBufferConfigFallback(t *testing.T) {
	b := NewBufferWithConfig(0, 500)
	if b.batchSize != defaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", defaultBatchSize, b.batchSize)
	}
	if got := float64(b.limiter.Limit()); got != defaultMaxFPS {
		t.Errorf("Expected limit %d, got %v", defaultMaxFPS, got)
	}
}

// =============================================================================
// PRINTER TESTS
// =============================================================================

func newTestPrinter() (*Printer, *bytes.Buffer) {
	var out bytes.Buffer
	// Batch size 1 writes every append immediately.
	return NewPrinterWithBuffer(&out, newBuffer(1, 30, newFakeClock().now)), &out
}

func TestPrinterStreamsContent(t *testing.T) {
	p, out := newTestPrinter()

	p.OnState(session.StateRequesting)
	p.OnState(session.StateStreaming)
	p.OnDelta(turn.ContentAppended{Text: "Hel"})
	p.OnDelta(turn.ContentAppended{Text: "lo"})
	p.OnComplete(turn.Result{Outcome: turn.OutcomeCompleted})

	got := out.String()
	if !strings.Contains(got, "assistant> Hello\n") {
		t.Errorf("Expected streamed content, got %q", got)
	}
	if !strings.HasSuffix(got, "]\n") {
		t.Errorf("Expected a stats line, got %q", got)
	}
}

func TestPrinterBuffersUntilComplete(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinterWithBuffer(&out, newBuffer(100, 30, newFakeClock().now))

	p.OnDelta(turn.ContentAppended{Text: "held"})
	if strings.Contains(out.String(), "held") {
		t.Error("Content should be buffered")
	}

	p.OnComplete(turn.Result{Outcome: turn.OutcomeAborted})
	got := out.String()
	if !strings.Contains(got, "held\n") || !strings.Contains(got, "[stopped]") {
		t.Errorf("Expected flushed content and stop marker, got %q", got)
	}
}

func TestPrinterStatusLines(t *testing.T) {
	p, out := newTestPrinter()
	title := "Greeting"
	result := `{"temp": 21}`

	p.OnDelta(turn.ConversationAssigned{ID: "c1", Title: &title})
	p.OnDelta(turn.ThinkingChanged{Thinking: true})
	p.OnDelta(turn.ThinkingChanged{Thinking: false})
	p.OnDelta(turn.ContentAppended{Text: "Checking"})
	p.OnDelta(turn.ToolCallAdded{Call: turn.ToolCall{Name: "weather", CallID: "t1", Pending: true}})
	p.OnDelta(turn.ToolCallResolved{Call: turn.ToolCall{Name: "weather", CallID: "t1", Result: &result}})
	p.OnDelta(turn.TitleUpdated{ID: "c1", Title: "Weather"})

	want := []string{
		"new conversation c1: Greeting\n",
		"thinking...\n",
		"Checking\n-> weather (t1)\n",
		`<- weather: {"temp": 21}` + "\n",
		"title: Weather\n",
	}
	got := out.String()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("Expected output to contain %q, got %q", w, got)
		}
	}
	if strings.Count(got, "thinking...") != 1 {
		t.Errorf("Leaving a reasoning span should print nothing, got %q", got)
	}
}

func TestPrinterContentReplaced(t *testing.T) {
	p, out := newTestPrinter()

	p.OnDelta(turn.ContentAppended{Text: "abc"})
	p.OnDelta(turn.ContentReplaced{Visible: "abcdef"})
	if got := out.String(); got != "abcdef" {
		t.Errorf("Expected extension to print only the suffix, got %q", got)
	}

	p.OnDelta(turn.ContentReplaced{Visible: "xyz"})
	if got := out.String(); !strings.HasSuffix(got, "(revised)\nxyz") {
		t.Errorf("Expected revised content, got %q", got)
	}
}

func TestPrinterFailure(t *testing.T) {
	p, out := newTestPrinter()

	p.OnDelta(turn.ContentAppended{Text: "partial"})
	p.OnComplete(turn.Result{Outcome: turn.OutcomeFailed, Err: "boom"})

	if got := out.String(); got != "partial\nError: boom\n" {
		t.Errorf("Unexpected failure output %q", got)
	}
}

func TestPrinterDirectOutput(t *testing.T) {
	p, out := newTestPrinter()

	p.PrintMessage(model.Message{Role: model.RoleUser, Content: "hi"})
	p.PrintMessage(model.Message{Role: model.RoleAssistant, Content: "hello"})
	p.Info("%d conversations", 2)
	p.Muted("hint")
	p.Error(errors.New("bad"))

	want := "you> hi\nassistant> hello\n2 conversations\nhint\nError: bad\n"
	if got := out.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
