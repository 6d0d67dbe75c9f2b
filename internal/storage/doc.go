// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for streamchat.
//
// Finalized messages are appended to a conversation's history and never
// rewritten. Two backends implement Store:
//
//   - JSONStore: one JSON file per conversation, written atomically
//   - SQLiteStore: a single SQLite database (pure Go driver)
//
// Index caches the conversation list for display and keeps it current as
// the backend creates conversations and renames them.
//
// # Usage
//
//	store, err := storage.Open(cfg.Storage)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.Append(ctx, conversationID, userMsg, assistantMsg)
package storage
