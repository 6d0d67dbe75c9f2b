// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
)

// Open returns the store selected by cfg.
func Open(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "json":
		return NewJSONStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "none", "":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Discard is a Store that keeps nothing.
type Discard struct{}

func (Discard) Append(context.Context, string, ...model.Message) error { return nil }
func (Discard) UpdateTitle(context.Context, string, string) error      { return nil }
func (Discard) Load(context.Context, string) (*model.Conversation, error) {
	return nil, ErrConversationNotFound
}
func (Discard) List(context.Context) ([]ConversationMeta, error) { return []ConversationMeta{}, nil }
func (Discard) Delete(context.Context, string) error              { return ErrConversationNotFound }
func (Discard) Close() error                                      { return nil }
