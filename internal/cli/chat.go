// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL with input history and slash commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/render"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/turn"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

var slashCommands = []string{"/new", "/list", "/open ", "/help", "/quit"}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession tracks the current conversation across turns.
type ChatSession struct {
	app     *App
	printer *render.Printer

	mu             sync.Mutex
	conversationID string
	pendingTurn    string
	ids            *model.Sequencer
}

// NewChatSession starts on a new conversation.
func NewChatSession(app *App, printer *render.Printer) *ChatSession {
	return &ChatSession{app: app, printer: printer, ids: model.NewSequencer(0)}
}

// ConversationID returns the current conversation, "" before the backend
// has created one.
func (s *ChatSession) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Send runs one turn on the current conversation.
func (s *ChatSession) Send(ctx context.Context, text string, obs session.Observer) (*turn.Result, error) {
	s.mu.Lock()
	req := session.Request{Message: text, ConversationID: s.conversationID, IDs: s.ids}
	if req.ConversationID == "" {
		req.TurnID = uuid.NewString()
		s.pendingTurn = req.TurnID
	}
	s.mu.Unlock()

	res, err := s.app.Controller.Run(ctx, req, obs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingTurn = ""
	if err != nil {
		return nil, err
	}
	if s.conversationID == "" && res.ConversationID != "" {
		s.conversationID = res.ConversationID
	}
	return res, nil
}

// Cancel stops the running turn, if any.
func (s *ChatSession) Cancel() bool {
	s.mu.Lock()
	key := s.conversationID
	if key == "" {
		key = s.pendingTurn
	}
	s.mu.Unlock()
	if key == "" {
		return false
	}
	return s.app.Controller.Cancel(key)
}

// Reset switches to a new conversation.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = ""
	s.ids = model.NewSequencer(0)
}

// Open switches to a saved conversation and returns it.
func (s *ChatSession) Open(ctx context.Context, ref string) (*model.Conversation, error) {
	conv, err := loadConversation(ctx, s.app, ref)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = conv.ID
	s.ids = model.NewSequencer(conv.NextSequence())
	return conv, nil
}

// loadConversation resolves ref against the conversation list and loads it.
func loadConversation(ctx context.Context, app *App, ref string) (*model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &UsageError{Reason: "a conversation id, id prefix or list number is required"}
	}

	id := ref
	if meta, ok := app.Index.Find(ref); ok {
		id = meta.ID
	}
	conv, err := app.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive chat. When stdin is not a
// terminal it sends stdin as a single message instead.
func HandleChatCommand(args Args) error {
	if !IsTTY() {
		query, err := readStdin(os.Stdin)
		if err != nil {
			return err
		}
		args.Query = query
		return HandleAskCommand(args)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	printer := render.NewPrinter(os.Stdout)
	s := NewChatSession(app, printer)

	ctx := context.Background()
	if args.Conversation != "" {
		conv, err := s.Open(ctx, args.Conversation)
		if err != nil {
			return err
		}
		printConversation(printer, conv)
	}

	if !args.Quiet {
		printer.Muted("streamchat %s - %s - type /help for commands", Version, app.Config.Server.APIURL)
	}

	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C while streaming stops the turn; at the prompt liner handles it.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigChan)
		close(done)
	}()
	go cancelOnSignal(sigChan, done, s.Cancel, app.Log.Logger)

	for {
		line, err := input.ReadInput("you> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				app.Log.Warn("input error", zap.Error(err))
			}
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := handleSlashCommand(ctx, s, line)
			if err != nil {
				printer.Error(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		if _, err := s.Send(ctx, line, printer); err != nil {
			printer.Error(err)
		}
	}
}

// cancelOnSignal stops the running turn for every signal until done is
// closed.
func cancelOnSignal(sig <-chan os.Signal, done <-chan struct{}, cancel func() bool, log *zap.Logger) {
	for {
		select {
		case <-sig:
			if cancel() {
				log.Debug("turn cancelled by signal")
			}
		case <-done:
			return
		}
	}
}

// handleSlashCommand runs a chat command. It returns false to exit.
func handleSlashCommand(ctx context.Context, s *ChatSession, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil

	case "/new", "/clear":
		s.Reset()
		s.printer.Info("started a new conversation")
		return true, nil

	case "/list", "/ls":
		if err := s.app.Index.Refresh(ctx); err != nil {
			return true, err
		}
		printConversationList(s.printer, s.app.Index.Items(), s.ConversationID())
		return true, nil

	case "/open":
		conv, err := s.Open(ctx, arg)
		if err != nil {
			return true, err
		}
		printConversation(s.printer, conv)
		return true, nil

	case "/help", "/?":
		s.printer.Muted("/new  /list  /open <ref>  /quit  (Ctrl+C stops an answer)")
		return true, nil

	default:
		return true, &UsageError{Reason: fmt.Sprintf("unknown command %s (try /help)", cmd)}
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printConversation(p *render.Printer, conv *model.Conversation) {
	p.Info("%s (%d messages)", conversationTitle(conv), conv.Len())
	for _, msg := range conv.Messages {
		p.PrintMessage(msg)
	}
}

func conversationTitle(conv *model.Conversation) string {
	if conv.Title != "" {
		return conv.Title
	}
	return conv.ID
}

func printConversationList(p *render.Printer, items []storage.ConversationMeta, current string) {
	if len(items) == 0 {
		p.Muted("no saved conversations")
		return
	}
	for i, item := range items {
		marker := " "
		if item.ID == current {
			marker = "*"
		}
		p.Info("%s%3d  %s  %s  %s",
			marker, i+1,
			util.PadWidth(util.TruncateWidth(item.ID, 10), 10),
			util.PadWidth(util.TruncateWidth(item.DisplayTitle(), 40), 40),
			item.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}
