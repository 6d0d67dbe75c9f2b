// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across streamchat.
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - TruncateWidth, PadWidth, Summarize: cell-width aware previews and
//     columns for titles, lists and status lines
package util
