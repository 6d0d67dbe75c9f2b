// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// JSON CONVERSATION STORE
// =============================================================================

// JSONStore keeps one JSON file per conversation in a directory.
type JSONStore struct {
	// BaseDir is the directory for storing conversations
	BaseDir string

	// MaxConversations limits stored conversations (0 = unlimited)
	MaxConversations int

	mu  sync.Mutex
	now func() time.Time
}

// NewJSONStore creates a store rooted at baseDir.
func NewJSONStore(baseDir string) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create conversation dir: %w", err)
	}
	return &JSONStore{
		BaseDir:          baseDir,
		MaxConversations: 100,
		now:              time.Now,
	}, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Append implements Store.
func (s *JSONStore) Append(ctx context.Context, conversationID string, msgs ...model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.update(ctx, conversationID, func(conv *model.Conversation) {
		conv.Append(msgs...)
	})
}

// UpdateTitle implements Store.
func (s *JSONStore) UpdateTitle(ctx context.Context, conversationID, title string) error {
	return s.update(ctx, conversationID, func(conv *model.Conversation) {
		conv.SetTitle(title)
		conv.UpdatedAt = s.now()
	})
}

// update loads or creates a conversation, applies fn and saves it.
func (s *JSONStore) update(ctx context.Context, id string, fn func(*model.Conversation)) error {
	if id == "" {
		return ErrNoConversationID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(id)
	if errors.Is(err, ErrConversationNotFound) {
		conv = model.NewConversation()
		conv.CreatedAt = s.now()
		conv.UpdatedAt = conv.CreatedAt
		conv.AssignID(id)
	} else if err != nil {
		return err
	}

	fn(conv)
	if err := s.save(conv); err != nil {
		return err
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}
	return nil
}

func (s *JSONStore) save(conv *model.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := util.AtomicWriteFile(s.filePath(conv.ID), data, 0600); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

// enforceLimit removes oldest conversations if over limit.
func (s *JSONStore) enforceLimit() {
	metas, err := s.list()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	// list is newest first
	for _, meta := range metas[s.MaxConversations:] {
		os.Remove(s.filePath(meta.ID))
	}
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Load implements Store.
func (s *JSONStore) Load(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(conversationID)
}

func (s *JSONStore) load(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// List implements Store.
func (s *JSONStore) List(ctx context.Context) ([]ConversationMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *JSONStore) list() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	metas := make([]ConversationMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := s.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip corrupted files
		}
		metas = append(metas, metaOf(conv))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete implements Store.
func (s *JSONStore) Delete(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(conversationID)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

// filePath returns the file path for a conversation ID. Backend ids are
// opaque, so anything path-like is flattened.
func (s *JSONStore) filePath(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '_'
		}
		return r
	}, id)
	return filepath.Join(s.BaseDir, safe+".json")
}
