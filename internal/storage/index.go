// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// =============================================================================
// CONVERSATION INDEX
// =============================================================================

// Index is the cached conversation list shown to the user. It is refreshed
// when the backend creates a conversation and patched in place when a title
// changes.
type Index struct {
	store Store

	mu    sync.RWMutex
	items []ConversationMeta
}

// NewIndex creates an empty index over store. Call Refresh to populate it.
func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Refresh reloads the list from the store.
func (x *Index) Refresh(ctx context.Context) error {
	items, err := x.store.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh conversation list: %w", err)
	}
	x.mu.Lock()
	x.items = items
	x.mu.Unlock()
	return nil
}

// UpdateTitle persists a new title and patches the cached entry.
func (x *Index) UpdateTitle(ctx context.Context, conversationID, title string) error {
	if err := x.store.UpdateTitle(ctx, conversationID, title); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.items {
		if x.items[i].ID == conversationID {
			x.items[i].Title = title
			return nil
		}
	}
	x.items = append([]ConversationMeta{{ID: conversationID, Title: title}}, x.items...)
	return nil
}

// Items returns a copy of the cached list.
func (x *Index) Items() []ConversationMeta {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]ConversationMeta(nil), x.items...)
}

// Find resolves a conversation by exact id, unique id prefix, or 1-based
// position in the list.
func (x *Index) Find(ref string) (ConversationMeta, bool) {
	items := x.Items()

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], true
	}

	var match ConversationMeta
	found := 0
	for _, item := range items {
		if item.ID == ref {
			return item, true
		}
		if strings.HasPrefix(item.ID, ref) {
			match = item
			found++
		}
	}
	return match, found == 1
}
