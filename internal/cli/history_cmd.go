// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - list and show commands for saved conversations.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/jeranaias/streamchat/internal/render"
)

// HandleListCommand prints saved conversations, most recent first.
func HandleListCommand(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	return listConversations(context.Background(), app, os.Stdout)
}

func listConversations(ctx context.Context, app *App, out io.Writer) error {
	if err := app.Index.Refresh(ctx); err != nil {
		return err
	}
	printConversationList(render.NewPrinter(out), app.Index.Items(), "")
	return nil
}

// HandleShowCommand prints one saved conversation.
func HandleShowCommand(args Args) error {
	ref := args.Subcommand
	if ref == "" {
		ref = args.Conversation
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	return showConversation(context.Background(), app, ref, os.Stdout)
}

func showConversation(ctx context.Context, app *App, ref string, out io.Writer) error {
	conv, err := loadConversation(ctx, app, ref)
	if err != nil {
		return err
	}
	printConversation(render.NewPrinter(out), conv)
	return nil
}
