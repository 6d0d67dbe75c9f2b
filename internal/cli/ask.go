// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question: send, stream the answer, exit.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
)

// maxStdinMessage caps a message read from stdin.
const maxStdinMessage = 1 << 20

// HandleAskCommand sends args.Query (or stdin when it is piped) as a single
// message. A turn that does not complete is returned as a *TurnError.
func HandleAskCommand(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" && !IsTTY() {
		var err error
		if query, err = readStdin(os.Stdin); err != nil {
			return err
		}
	}
	if query == "" {
		return &UsageError{Reason: `nothing to ask: streamchat ask "your question"`}
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ask(ctx, app, args, query, os.Stdout)
}

func ask(ctx context.Context, app *App, args Args, query string, out io.Writer) error {
	printer := render.NewPrinter(out)
	s := NewChatSession(app, printer)
	if args.Conversation != "" {
		if _, err := s.Open(ctx, args.Conversation); err != nil {
			return err
		}
	}

	var obs session.Observer = printer
	if args.Quiet {
		obs = nil
	}

	res, err := s.Send(ctx, query, obs)
	if err != nil {
		return err
	}
	if args.Quiet && res.Message != nil && turnError(res) == nil {
		fmt.Fprintln(out, res.Message.Content)
	}
	return turnError(res)
}

// readStdin reads a piped message.
func readStdin(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinMessage))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
