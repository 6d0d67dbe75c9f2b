// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render prints a streaming turn to a terminal.
//
// Buffer batches appended text so the terminal is written at a capped rate
// rather than once per token. Printer implements session.Observer and turns
// deltas into plain text with styled status lines.
package render
