// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a finalized chat message. Once produced it is never modified;
// histories only append.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Sequence  int       `json:"sequence"`

	// Content is the user-visible text, with reasoning spans removed.
	Content string `json:"content"`

	// Token usage reported by the backend (assistant messages)
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	// Tools invoked while producing the message
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}

// ToolCallRecord summarizes one tool invocation of a finished turn.
type ToolCallRecord struct {
	Name   string  `json:"name"`
	CallID string  `json:"call_id"`
	Result *string `json:"result,omitempty"`
}

// NewUserMessage creates a user message stamped by ids.
func NewUserMessage(ids IDSource, content string) Message {
	s := ids.Next()
	return Message{
		ID:        s.ID,
		Role:      RoleUser,
		CreatedAt: s.At,
		Sequence:  s.Sequence,
		Content:   content,
	}
}

// NewAssistantMessage creates an assistant message stamped by ids.
func NewAssistantMessage(ids IDSource, content string, usage Usage, calls []ToolCallRecord) Message {
	s := ids.Next()
	return Message{
		ID:           s.ID,
		Role:         RoleAssistant,
		CreatedAt:    s.At,
		Sequence:     s.Sequence,
		Content:      content,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		ToolCalls:    calls,
	}
}

// Preview returns a single-line preview of the content at most width
// terminal cells wide.
func (m Message) Preview(width int) string {
	return util.Summarize(m.Content, width)
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// USAGE TYPE
// =============================================================================

// Usage is the token accounting reported at the end of a turn.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}
