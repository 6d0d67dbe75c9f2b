// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat turn end to end.
//
// A Controller posts the user's message, decodes the streamed response,
// folds the events into a turn.Assembler and reports the outcome. Live
// deltas go to an Observer while the response streams; exactly one terminal
// Result follows.
//
// # State Machine
//
//	Idle -> Requesting -> Streaming -> Completed | Aborted | Failed
//
// A non-2xx response fails the turn without entering Streaming. Cancelling
// the context aborts the turn; cancellation is never reported as a failure.
//
// # Usage
//
//	ctrl, err := session.New(session.Options{
//	    URL:     cfg.Server.ChatURL(),
//	    Auth:    auth.StaticProvider{Token: token},
//	    History: store,
//	})
//	res, err := ctrl.Run(ctx, session.Request{Message: "Hi"}, printer)
package session
