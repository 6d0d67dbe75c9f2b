// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package event defines the typed chat events carried by the backend stream
// and converts decoded frames into them.
package event

// =============================================================================
// WIRE EVENT NAMES
// =============================================================================

const (
	NameConversation = "conversation"
	NameContent      = "content"
	NameToolCall     = "tool_call"
	NameToolResult   = "tool_result"
	NameTitleUpdate  = "title_update"
	NameDone         = "done"
	NameError        = "error"
)

// =============================================================================
// EVENT UNION
// =============================================================================

// Event is one of the concrete event types below. The set is closed.
type Event interface {
	// EventName returns the wire event name.
	EventName() string
	isEvent()
}

// Conversation announces which conversation the turn belongs to.
type Conversation struct {
	ID    string
	Title *string
	// IsNew is true when the backend just created the conversation.
	IsNew bool
}

// Content is an incremental slice of assistant output.
type Content struct {
	Text string
}

// ToolCall reports that the model decided to invoke a tool.
type ToolCall struct {
	Name   string
	CallID string
}

// ToolResult carries a tool's output. It names the tool, not the call id.
type ToolResult struct {
	Name   string
	Result *string
}

// TitleUpdate carries a new display title for a conversation.
type TitleUpdate struct {
	ID    string
	Title string
}

// Done terminates a successful turn.
type Done struct {
	InputTokens  int
	OutputTokens int
}

// Error terminates a failed turn.
type Error struct {
	Message string
}

func (Conversation) EventName() string { return NameConversation }
func (Content) EventName() string      { return NameContent }
func (ToolCall) EventName() string     { return NameToolCall }
func (ToolResult) EventName() string   { return NameToolResult }
func (TitleUpdate) EventName() string  { return NameTitleUpdate }
func (Done) EventName() string         { return NameDone }
func (Error) EventName() string        { return NameError }

func (Conversation) isEvent() {}
func (Content) isEvent()      {}
func (ToolCall) isEvent()     {}
func (ToolResult) isEvent()   {}
func (TitleUpdate) isEvent()  {}
func (Done) isEvent()         {}
func (Error) isEvent()        {}

// IsTerminal reports whether ev ends a turn.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Done, *Done, Error, *Error:
		return true
	}
	return false
}
