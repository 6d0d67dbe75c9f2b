// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the append-only message history of one chat.
// An empty ID means the backend has not created the conversation yet.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty, not-yet-created conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds finalized messages to the end of the history.
func (c *Conversation) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = msgs[len(msgs)-1].CreatedAt
}

// AssignID records the backend-assigned conversation id. An id that is
// already set is never replaced.
func (c *Conversation) AssignID(id string) bool {
	if c.ID != "" || id == "" {
		return false
	}
	c.ID = id
	return true
}

// SetTitle updates the display title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	m := c.Messages[len(c.Messages)-1]
	return &m
}

// GetLastAssistantMessage returns the most recent assistant message.
func (c *Conversation) GetLastAssistantMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			m := c.Messages[i]
			return &m
		}
	}
	return nil
}

// NextSequence returns the sequence number the next message should carry.
func (c *Conversation) NextSequence() int {
	if len(c.Messages) == 0 {
		return 0
	}
	return c.Messages[len(c.Messages)-1].Sequence + 1
}

// Clear starts a fresh conversation.
func (c *Conversation) Clear() {
	*c = *NewConversation()
}
