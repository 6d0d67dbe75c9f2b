// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/turn"
)

// =============================================================================
// UPWARD INTERFACE
// =============================================================================

// Observer receives live progress of a turn. Both methods are called from
// the goroutine running Controller.Run.
type Observer interface {
	// OnDelta is called for every change while the response streams.
	OnDelta(d turn.Delta)
	// OnComplete is called exactly once with the terminal result.
	OnComplete(res turn.Result)
}

// StateObserver is optionally implemented by an Observer that wants state
// transitions.
type StateObserver interface {
	OnState(s State)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Delta    func(turn.Delta)
	Complete func(turn.Result)
	State    func(State)
}

// OnDelta implements Observer.
func (f ObserverFuncs) OnDelta(d turn.Delta) {
	if f.Delta != nil {
		f.Delta(d)
	}
}

// OnComplete implements Observer.
func (f ObserverFuncs) OnComplete(res turn.Result) {
	if f.Complete != nil {
		f.Complete(res)
	}
}

// OnState implements StateObserver.
func (f ObserverFuncs) OnState(s State) {
	if f.State != nil {
		f.State(s)
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// ConversationList is the user's list of conversations.
type ConversationList interface {
	// Refresh reloads the list, e.g. after a conversation was created.
	Refresh(ctx context.Context) error
	// UpdateTitle renames a conversation in place.
	UpdateTitle(ctx context.Context, conversationID, title string) error
}

// HistoryStore persists finalized messages.
type HistoryStore interface {
	Append(ctx context.Context, conversationID string, msgs ...model.Message) error
}

type nopList struct{}

func (nopList) Refresh(context.Context) error                     { return nil }
func (nopList) UpdateTitle(context.Context, string, string) error { return nil }

type nopHistory struct{}

func (nopHistory) Append(context.Context, string, ...model.Message) error { return nil }
