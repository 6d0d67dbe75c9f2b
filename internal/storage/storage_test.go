// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
)

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("json", func(t *testing.T) {
		s, err := NewJSONStore(t.TempDir())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func testMessages(start int, at time.Time) (model.Message, model.Message) {
	n := 0
	ids := model.NewSequencerWith(func() time.Time {
		n++
		return at.Add(time.Duration(n) * time.Second)
	}, func() string { return fmt.Sprintf("m%d-%d-%d", start, at.Unix(), n) }, start)

	result := `{"temp":21}`
	user := model.NewUserMessage(ids, "What is\nthe weather?")
	reply := model.NewAssistantMessage(ids, "Sunny.", model.Usage{InputTokens: 3, OutputTokens: 2},
		[]model.ToolCallRecord{{Name: "weather", CallID: "call_1", Result: &result}})
	return user, reply
}

func TestStore_AppendAndLoad(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
		user, reply := testMessages(0, at)

		require.NoError(t, s.Append(ctx, "c1", user, reply))

		conv, err := s.Load(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", conv.ID)
		require.Len(t, conv.Messages, 2)
		assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
		assert.Equal(t, "What is\nthe weather?", conv.Messages[0].Content)
		assert.Equal(t, "Sunny.", conv.Messages[1].Content)
		assert.Equal(t, 2, conv.Messages[1].OutputTokens)
		require.Len(t, conv.Messages[1].ToolCalls, 1)
		assert.Equal(t, `{"temp":21}`, *conv.Messages[1].ToolCalls[0].Result)
		assert.True(t, conv.UpdatedAt.Equal(reply.CreatedAt))
	})
}

func TestStore_AppendOnly(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

		u1, r1 := testMessages(0, at)
		u2, r2 := testMessages(2, at.Add(time.Hour))
		require.NoError(t, s.Append(ctx, "c1", u1, r1))
		require.NoError(t, s.Append(ctx, "c1", u2, r2))
		require.NoError(t, s.Append(ctx, "c1"))

		conv, err := s.Load(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, conv.Messages, 4)
		for i, m := range conv.Messages {
			assert.Equal(t, i, m.Sequence)
		}
		assert.Equal(t, 4, conv.NextSequence())
	})
}

func TestStore_UpdateTitleAndList(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

		// Title can arrive before any message is stored.
		require.NoError(t, s.UpdateTitle(ctx, "c1", "Weather"))
		u, r := testMessages(0, at)
		require.NoError(t, s.Append(ctx, "c1", u, r))

		u2, r2 := testMessages(0, at.Add(24*time.Hour))
		require.NoError(t, s.Append(ctx, "c2", u2, r2))

		metas, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, metas, 2)
		assert.Equal(t, "c2", metas[0].ID)
		assert.Equal(t, "What is the weather?", metas[0].DisplayTitle())
		assert.Equal(t, "c1", metas[1].ID)
		assert.Equal(t, "Weather", metas[1].Title)
		assert.Equal(t, 2, metas[1].MessageCount)
		assert.Equal(t, "What is the weather?", metas[1].Preview)
	})
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Load(ctx, "missing")
		require.ErrorIs(t, err, ErrConversationNotFound)
		require.ErrorIs(t, s.Delete(ctx, "missing"), ErrConversationNotFound)

		u, r := testMessages(0, time.Now())
		require.NoError(t, s.Append(ctx, "c1", u, r))
		require.NoError(t, s.Delete(ctx, "c1"))
		_, err = s.Load(ctx, "c1")
		require.ErrorIs(t, err, ErrConversationNotFound)
	})
}

func TestStore_RequiresConversationID(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		u, _ := testMessages(0, time.Now())
		require.ErrorIs(t, s.Append(context.Background(), "", u), ErrNoConversationID)
		require.ErrorIs(t, s.UpdateTitle(context.Background(), "", "t"), ErrNoConversationID)
	})
}

func TestJSONStore_EnforceLimit(t *testing.T) {
	s, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)
	s.MaxConversations = 2

	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		u, r := testMessages(0, at.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.Append(ctx, fmt.Sprintf("c%d", i), u, r))
	}

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "c2", metas[0].ID)
	assert.Equal(t, "c1", metas[1].ID)
}

func TestJSONStore_UnsafeIDsStayInDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	u, r := testMessages(0, time.Now())
	require.NoError(t, s.Append(context.Background(), "../escape", u, r))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	conv, err := s.Load(context.Background(), "../escape")
	require.NoError(t, err)
	assert.Equal(t, "../escape", conv.ID)
}

func TestJSONStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0600))

	metas, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestStore_CancelledContext(t *testing.T) {
	s, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u, _ := testMessages(0, time.Now())
	require.ErrorIs(t, s.Append(ctx, "c1", u), context.Canceled)
}

// =============================================================================
// INDEX
// =============================================================================

func TestIndex_RefreshAndUpdateTitle(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	idx := NewIndex(s)
	require.NoError(t, idx.Refresh(ctx))
	assert.Empty(t, idx.Items())

	u, r := testMessages(0, time.Now())
	require.NoError(t, s.Append(ctx, "conv_abc", u, r))
	require.NoError(t, idx.Refresh(ctx))
	require.Len(t, idx.Items(), 1)

	require.NoError(t, idx.UpdateTitle(ctx, "conv_abc", "Forecast"))
	assert.Equal(t, "Forecast", idx.Items()[0].Title)

	// Unknown ids are added at the top until the next refresh.
	require.NoError(t, idx.UpdateTitle(ctx, "conv_new", "Fresh"))
	items := idx.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "conv_new", items[0].ID)

	stored, err := s.Load(ctx, "conv_abc")
	require.NoError(t, err)
	assert.Equal(t, "Forecast", stored.Title)
}

func TestIndex_Find(t *testing.T) {
	s, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	u1, r1 := testMessages(0, at)
	u2, r2 := testMessages(0, at.Add(time.Hour))
	require.NoError(t, s.Append(ctx, "abc123", u1, r1))
	require.NoError(t, s.Append(ctx, "abd456", u2, r2))

	idx := NewIndex(s)
	require.NoError(t, idx.Refresh(ctx))

	tests := []struct {
		ref    string
		wantID string
		ok     bool
	}{
		{ref: "1", wantID: "abd456", ok: true},
		{ref: "2", wantID: "abc123", ok: true},
		{ref: "3"},
		{ref: "abc", wantID: "abc123", ok: true},
		{ref: "ab"},
		{ref: "abd456", wantID: "abd456", ok: true},
		{ref: "zzz"},
	}
	for _, tt := range tests {
		got, ok := idx.Find(tt.ref)
		assert.Equal(t, tt.ok, ok, tt.ref)
		if tt.ok {
			assert.Equal(t, tt.wantID, got.ID, tt.ref)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.StorageConfig{Backend: "json", Path: filepath.Join(dir, "conv")})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(config.StorageConfig{Backend: "sqlite", Path: filepath.Join(dir, "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(config.StorageConfig{Backend: "none"})
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), "c", model.Message{}))

	_, err = Open(config.StorageConfig{Backend: "redis"})
	require.Error(t, err)
}
