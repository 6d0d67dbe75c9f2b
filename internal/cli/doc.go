// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the streamchat command line.
//
// # Commands
//
//   - chat: interactive REPL with input history (default)
//   - ask: one question, answer streamed to stdout
//   - list, show: saved conversations
//   - config: show, locate or create the config file
//
// Every command builds an App from the config file, which wires logging,
// history storage, authentication and the session controller. Commands
// return errors; GetExitCode maps them to process exit codes.
package cli
