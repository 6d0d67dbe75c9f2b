// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/turn"
	"github.com/jeranaias/streamchat/internal/util"
)

// maxToolResult caps how much of a tool result is echoed.
const maxToolResult = 120

// Printer writes a streaming turn to w. It implements session.Observer and
// session.StateObserver.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	theme *Theme
	buf   *Buffer

	// shown is the visible text already written for the current turn
	shown string
	// midLine is true when the cursor is not at the start of a line
	midLine bool
}

var (
	_ session.Observer      = (*Printer)(nil)
	_ session.StateObserver = (*Printer)(nil)
)

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, theme: NewTheme(w), buf: NewBuffer()}
}

// NewPrinterWithBuffer creates a printer with a custom flush buffer.
func NewPrinterWithBuffer(w io.Writer, buf *Buffer) *Printer {
	return &Printer{w: w, theme: NewTheme(w), buf: buf}
}

// =============================================================================
// OBSERVER
// =============================================================================

// OnState implements session.StateObserver.
func (p *Printer) OnState(s session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch s {
	case session.StateRequesting:
		p.shown = ""
		p.midLine = false
		p.buf.Reset()
	case session.StateStreaming:
		p.write(p.theme.Prompt.Render("assistant>") + " ")
	}
}

// OnDelta implements session.Observer.
func (p *Printer) OnDelta(d turn.Delta) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch d := d.(type) {
	case turn.ContentAppended:
		p.shown += d.Text
		p.buf.Write(d.Text)
		if text, ok := p.buf.Flush(); ok {
			p.write(text)
		}

	case turn.ContentReplaced:
		p.flush()
		if strings.HasPrefix(d.Visible, p.shown) {
			p.write(d.Visible[len(p.shown):])
		} else {
			p.status(p.theme.Muted.Render("(revised)"))
			p.write(d.Visible)
		}
		p.shown = d.Visible

	case turn.ThinkingChanged:
		if d.Thinking {
			p.flush()
			p.status(p.theme.Thinking.Render("thinking..."))
		}

	case turn.ToolCallAdded:
		p.flush()
		p.status(p.theme.Tool.Render(fmt.Sprintf("-> %s (%s)", d.Call.Name, d.Call.CallID)))

	case turn.ToolCallResolved:
		p.flush()
		line := "<- " + d.Call.Name
		if d.Call.Result != nil {
			line += ": " + util.Summarize(*d.Call.Result, maxToolResult)
		}
		p.status(p.theme.ToolDone.Render(line))

	case turn.ConversationAssigned:
		p.flush()
		line := "new conversation " + d.ID
		if d.Title != nil && *d.Title != "" {
			line += ": " + *d.Title
		}
		p.status(p.theme.Info.Render(line))

	case turn.TitleUpdated:
		p.flush()
		p.status(p.theme.Info.Render("title: " + d.Title))
	}
}

// OnComplete implements session.Observer.
func (p *Printer) OnComplete(res turn.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flush()
	switch res.Outcome {
	case turn.OutcomeCompleted:
		p.status(p.theme.Muted.Render("[" + res.Stats.Format(res.Usage) + "]"))
	case turn.OutcomeAborted:
		p.status(p.theme.Warning.Render("[stopped]"))
	case turn.OutcomeFailed:
		p.status(p.theme.Error.Render("Error: " + res.Err))
	}
}

// =============================================================================
// DIRECT OUTPUT
// =============================================================================

// PrintMessage writes a stored message with a role label.
func (p *Printer) PrintMessage(msg model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := strings.ToLower(msg.Role.DisplayName()) + ">"
	if msg.Role == model.RoleUser {
		label = "you>"
	}
	p.endLine()
	p.write(p.theme.Prompt.Render(label) + " " + msg.Content)
	p.endLine()
}

// Info writes an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status(p.theme.Info.Render(fmt.Sprintf(format, args...)))
}

// Muted writes a low-emphasis line.
func (p *Printer) Muted(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status(p.theme.Muted.Render(fmt.Sprintf(format, args...)))
}

// Error writes an error line.
func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status(p.theme.Error.Render("Error: " + err.Error()))
}

// =============================================================================
// HELPERS (caller must hold lock)
// =============================================================================

func (p *Printer) flush() {
	if text, ok := p.buf.ForceFlush(); ok {
		p.write(text)
	}
}

// status writes line on a line of its own.
func (p *Printer) status(line string) {
	p.endLine()
	p.write(line + "\n")
}

func (p *Printer) endLine() {
	if p.midLine {
		p.write("\n")
	}
}

func (p *Printer) write(s string) {
	if s == "" {
		return
	}
	_, _ = io.WriteString(p.w, s)
	p.midLine = !strings.HasSuffix(s, "\n")
}
