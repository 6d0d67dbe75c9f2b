// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store persists conversation histories. Messages are only ever appended.
type Store interface {
	// Append adds finalized messages to a conversation, creating it if needed.
	Append(ctx context.Context, conversationID string, msgs ...model.Message) error
	// UpdateTitle sets a conversation's title, creating it if needed.
	UpdateTitle(ctx context.Context, conversationID, title string) error
	// Load returns a full conversation.
	Load(ctx context.Context, conversationID string) (*model.Conversation, error)
	// List returns conversation metadata, most recently updated first.
	List(ctx context.Context) ([]ConversationMeta, error)
	// Delete removes a conversation.
	Delete(ctx context.Context, conversationID string) error
	Close() error
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// DisplayTitle returns the title, or the preview when the backend never
// named the conversation.
func (m ConversationMeta) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Preview != "" {
		return m.Preview
	}
	return "New conversation"
}

// metaOf summarizes a conversation.
func metaOf(conv *model.Conversation) ConversationMeta {
	return ConversationMeta{
		ID:           conv.ID,
		Title:        conv.Title,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: conv.Len(),
		Preview:      previewOf(conv.Messages),
	}
}

const previewLen = 80

// previewOf returns the first user message as a one-line preview.
func previewOf(msgs []model.Message) string {
	for _, msg := range msgs {
		if msg.Role == model.RoleUser && msg.Content != "" {
			return msg.Preview(previewLen)
		}
	}
	return ""
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ErrNoConversationID is returned when a write names no conversation.
var ErrNoConversationID = errors.New("conversation id is required")

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
