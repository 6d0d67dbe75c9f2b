// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn assembles the typed events of one streaming response into an
// assistant message.
//
// A Turn is the mutable state of a single request/response cycle. It is
// owned by exactly one Assembler and only changes through Assembler methods;
// once the turn reaches a terminal phase it is frozen and the Assembler hands
// out an immutable Result.
package turn

import (
	"github.com/jeranaias/streamchat/internal/event"
	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the lifecycle state of a turn.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseFinalized
	PhaseAborted
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseFinalized:
		return "finalized"
	case PhaseAborted:
		return "aborted"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the phase is final.
func (p Phase) IsTerminal() bool {
	return p != PhaseActive
}

// =============================================================================
// TURN STATE
// =============================================================================

// ToolCall is the lifecycle of one tool invocation.
type ToolCall struct {
	Name    string
	CallID  string
	Result  *string
	Pending bool
}

// Turn is the state of one in-flight assistant response.
type Turn struct {
	// Visible is the user-facing text; it only grows while streaming.
	Visible string
	// Raw is the full accumulated text including reasoning markup.
	Raw string
	// Thinking is true while a reasoning span is open.
	Thinking bool

	// ToolCalls are ordered by arrival and never removed.
	ToolCalls []ToolCall
	// Orphans are tool results that matched no pending call.
	Orphans []event.ToolResult

	ConversationID string
	Phase          Phase
	Usage          model.Usage
	Stats          model.Statistics
}

// clone returns a deep copy safe to hand to callers.
func (t *Turn) clone() Turn {
	c := *t
	c.ToolCalls = append([]ToolCall(nil), t.ToolCalls...)
	c.Orphans = append([]event.ToolResult(nil), t.Orphans...)
	return c
}

// PendingCalls returns the number of unresolved tool calls.
func (t *Turn) PendingCalls() int {
	n := 0
	for _, tc := range t.ToolCalls {
		if tc.Pending {
			n++
		}
	}
	return n
}

// =============================================================================
// OUTCOME AND RESULT
// =============================================================================

// Outcome is how a turn ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeAborted
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the immutable record of a finished turn.
type Result struct {
	Outcome Outcome
	// Prompt is the user message that started the turn. Like Message it is
	// nil when the turn produced nothing worth keeping.
	Prompt *model.Message
	// Message is nil when the turn produced nothing worth keeping.
	Message *model.Message
	// Err is the failure text for OutcomeFailed.
	Err string

	ConversationID string
	Usage          model.Usage
	ToolCalls      []ToolCall
	Orphans        []event.ToolResult
	Stats          model.Statistics
}

// =============================================================================
// DELTAS
// =============================================================================

// Delta is a live change notification for progressive rendering.
type Delta interface {
	isDelta()
}

// ContentAppended carries newly visible text.
type ContentAppended struct {
	Text string
}

// ContentReplaced carries the full visible text when it could not be
// expressed as an append.
type ContentReplaced struct {
	Visible string
}

// ThinkingChanged reports entering or leaving a reasoning span.
type ThinkingChanged struct {
	Thinking bool
}

// ToolCallAdded reports a new pending tool call.
type ToolCallAdded struct {
	Call ToolCall
}

// ToolCallResolved reports a tool call receiving its result.
type ToolCallResolved struct {
	Call ToolCall
}

// ConversationAssigned reports the backend creating a new conversation.
type ConversationAssigned struct {
	ID    string
	Title *string
}

// TitleUpdated reports a conversation title change. It is forwarded to the
// conversation list and not stored on the turn.
type TitleUpdated struct {
	ID    string
	Title string
}

func (ContentAppended) isDelta()      {}
func (ContentReplaced) isDelta()      {}
func (ThinkingChanged) isDelta()      {}
func (ToolCallAdded) isDelta()        {}
func (ToolCallResolved) isDelta()     {}
func (ConversationAssigned) isDelta() {}
func (TitleUpdated) isDelta()         {}
