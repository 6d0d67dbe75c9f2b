// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Messages are finalized records: once a turn produces one it is never
// modified, and a Conversation only ever appends to its history.
//
// # Key Types
//
//   - Conversation: Append-only history of one chat plus its backend id
//   - Message: One finalized message with role, content, usage and tool calls
//   - IDSource: Injected identity (id, sequence, timestamp) for new messages
//   - Statistics: Timing for one streamed turn
//
// # Usage
//
//	ids := model.NewSequencer(conv.NextSequence())
//	conv.Append(model.NewUserMessage(ids, "Hello!"))
package model
