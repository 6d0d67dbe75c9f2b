// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY detection.
package cli

import (
	"os"

	"golang.org/x/term"
)

// IsTTY returns true if stdin is a terminal.
// Use this to decide between the REPL and reading a piped message.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
