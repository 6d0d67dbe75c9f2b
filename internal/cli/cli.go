// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and usage text for streamchat.
package cli

import (
	"fmt"
	"io"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdList
	CmdShow
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath   string
	Conversation string
	Quiet        bool
	Verbose      bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `streamchat - terminal client for a streaming chat backend

Usage:
  streamchat                     Interactive chat (default)
  streamchat chat                Interactive chat
  streamchat ask "question"      Ask a single question and print the answer
  streamchat list                List saved conversations
  streamchat show <ref>          Print a saved conversation
  streamchat config [show|path|init]
  streamchat version

Global flags:
  --config <path>                Config file (default ~/.streamchat/config.toml)
  -c, --conversation <ref>       Continue a saved conversation (id, prefix or list number)
  -q, --quiet                    Print only the final answer (ask)
  -v, --verbose                  Debug logging

Chat commands:
  /new                           Start a new conversation
  /list                          List saved conversations
  /open <ref>                    Switch to a saved conversation
  /help                          Show chat commands
  /quit                          Exit
  Ctrl+C while streaming stops the current answer.

When stdin is not a terminal, "chat" reads the whole of stdin and sends it
as one message.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "streamchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments (without the program name) and returns
// the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs, help := parseGlobalFlags(argv)
	if help {
		return CmdHelp, parsedArgs
	}

	if len(remaining) == 0 {
		return CmdChat, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	parsedArgs.Raw = rest

	switch cmd {
	case "chat":
		return CmdChat, parsedArgs

	case "ask":
		parsedArgs.Query = strings.Join(rest, " ")
		return CmdAsk, parsedArgs

	case "list", "ls":
		return CmdList, parsedArgs

	case "show", "open":
		if len(rest) > 0 {
			parsedArgs.Subcommand = rest[0]
		}
		return CmdShow, parsedArgs

	case "config":
		if len(rest) > 0 {
			parsedArgs.Subcommand = strings.ToLower(rest[0])
		}
		return CmdConfig, parsedArgs

	case "version":
		return CmdVersion, parsedArgs

	case "help":
		return CmdHelp, parsedArgs

	default:
		// Treat unknown words as a question: streamchat what is a goroutine
		parsedArgs.Query = strings.Join(remaining, " ")
		parsedArgs.Raw = remaining
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Flags may appear anywhere; everything after "--" is positional.
func parseGlobalFlags(args []string) ([]string, Args, bool) {
	var remaining []string
	var parsedArgs Args
	help := false

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "--":
			remaining = append(remaining, args[i+1:]...)
			return remaining, parsedArgs, help
		case "-h", "--help":
			help = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		case "-c", "--conversation":
			if i+1 < len(args) {
				i++
				parsedArgs.Conversation = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--conversation="):
				parsedArgs.Conversation = strings.TrimPrefix(arg, "--conversation=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs, help
}
