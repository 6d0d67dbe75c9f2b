// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package turn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/event"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/think"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnClosed is returned when an event arrives after the turn ended.
	ErrTurnClosed = errors.New("turn already closed")

	// ErrDuplicateCallID is returned when a tool call reuses a known call id.
	// The existing entry is left untouched.
	ErrDuplicateCallID = errors.New("duplicate tool call id")

	// ErrOrphanedResult is returned when a tool result matches no pending call.
	// The result is kept in Turn.Orphans.
	ErrOrphanedResult = errors.New("orphaned tool result")
)

// errorPrefix is prepended to failure text shown in the message body.
const errorPrefix = "Error: "

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures an Assembler.
type Option func(*Assembler)

// WithExtractor sets the reasoning-span markers.
func WithExtractor(e think.Extractor) Option {
	return func(a *Assembler) { a.extractor = e }
}

// WithSalvage keeps partial content as a message when the turn is aborted.
func WithSalvage(salvage bool) Option {
	return func(a *Assembler) { a.salvage = salvage }
}

// WithIDSource sets the identity source for the produced message.
func WithIDSource(ids model.IDSource) Option {
	return func(a *Assembler) { a.ids = ids }
}

// WithClock sets the time source used for statistics.
func WithClock(clock func() time.Time) Option {
	return func(a *Assembler) { a.clock = clock }
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Assembler) {
		if log != nil {
			a.log = log
		}
	}
}

// WithConversationID seeds the turn with an already-known conversation.
func WithConversationID(id string) Option {
	return func(a *Assembler) { a.turn.ConversationID = id }
}

// WithPrompt sets the user text that started the turn. It is stamped as a
// user message on the Result only when the turn also produces a message, so
// unpersisted turns consume no sequence numbers.
func WithPrompt(text string) Option {
	return func(a *Assembler) { a.prompt = text }
}

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler applies typed events to one Turn. It is not safe for concurrent
// use; a single controller goroutine drives it.
type Assembler struct {
	turn      Turn
	extractor think.Extractor
	salvage   bool
	ids       model.IDSource
	clock     func() time.Time
	log       *zap.Logger
	prompt    string

	result *Result
}

// New creates an Assembler for a fresh turn.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		extractor: think.Default,
		clock:     time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.ids == nil {
		a.ids = model.NewSequencerWith(a.clock, nil, 0)
	}
	a.turn.Phase = PhaseActive
	a.turn.Stats = model.NewStatistics(a.clock())
	return a
}

// Snapshot returns a copy of the current turn state.
func (a *Assembler) Snapshot() Turn {
	return a.turn.clone()
}

// Phase returns the current phase.
func (a *Assembler) Phase() Phase {
	return a.turn.Phase
}

// Apply folds one event into the turn and returns the resulting live deltas.
//
// Done and Error end the turn; the Result is then available from Finalize.
// ErrDuplicateCallID and ErrOrphanedResult are diagnostics: the turn stays
// active and the caller should keep streaming.
func (a *Assembler) Apply(ev event.Event) ([]Delta, error) {
	if a.turn.Phase.IsTerminal() {
		return nil, ErrTurnClosed
	}

	switch e := ev.(type) {
	case event.Conversation:
		return a.applyConversation(e), nil
	case event.Content:
		return a.applyContent(e), nil
	case event.ToolCall:
		return a.applyToolCall(e)
	case event.ToolResult:
		return a.applyToolResult(e)
	case event.TitleUpdate:
		return []Delta{TitleUpdated{ID: e.ID, Title: e.Title}}, nil
	case event.Done:
		a.turn.Usage = model.Usage{InputTokens: e.InputTokens, OutputTokens: e.OutputTokens}
		a.complete()
		return nil, nil
	case event.Error:
		a.fail(e.Message)
		return nil, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
}

func (a *Assembler) applyConversation(e event.Conversation) []Delta {
	if e.IsNew {
		a.turn.ConversationID = e.ID
		return []Delta{ConversationAssigned{ID: e.ID, Title: e.Title}}
	}
	if a.turn.ConversationID == "" {
		a.turn.ConversationID = e.ID
	}
	return nil
}

func (a *Assembler) applyContent(e event.Content) []Delta {
	if e.Text == "" {
		return nil
	}
	a.turn.Raw += e.Text

	prev := a.turn
	r := a.extractor.Extract(a.turn.Raw, true)
	a.turn.Visible = r.Visible
	a.turn.Thinking = r.Thinking

	var deltas []Delta
	if r.Thinking != prev.Thinking {
		deltas = append(deltas, ThinkingChanged{Thinking: r.Thinking})
	}
	switch {
	case r.Visible == prev.Visible:
	case strings.HasPrefix(r.Visible, prev.Visible):
		deltas = append(deltas, ContentAppended{Text: r.Visible[len(prev.Visible):]})
	default:
		deltas = append(deltas, ContentReplaced{Visible: r.Visible})
	}
	if r.Visible != "" {
		a.turn.Stats.RecordFirstToken(a.clock())
	}
	return deltas
}

func (a *Assembler) applyToolCall(e event.ToolCall) ([]Delta, error) {
	for _, tc := range a.turn.ToolCalls {
		if tc.CallID == e.CallID {
			a.log.Warn("duplicate tool call id",
				zap.String("call_id", e.CallID),
				zap.String("name", e.Name))
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCallID, e.CallID)
		}
	}
	tc := ToolCall{Name: e.Name, CallID: e.CallID, Pending: true}
	a.turn.ToolCalls = append(a.turn.ToolCalls, tc)
	return []Delta{ToolCallAdded{Call: tc}}, nil
}

// applyToolResult resolves the earliest pending call with the same name.
// The backend does not echo the call id on results.
func (a *Assembler) applyToolResult(e event.ToolResult) ([]Delta, error) {
	for i := range a.turn.ToolCalls {
		tc := &a.turn.ToolCalls[i]
		if tc.Pending && tc.Name == e.Name {
			tc.Pending = false
			tc.Result = e.Result
			return []Delta{ToolCallResolved{Call: *tc}}, nil
		}
	}
	a.turn.Orphans = append(a.turn.Orphans, e)
	a.log.Warn("tool result matched no pending call", zap.String("name", e.Name))
	return nil, fmt.Errorf("%w: %s", ErrOrphanedResult, e.Name)
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// Finalize ends an active turn as completed and returns the Result. On a turn
// that already ended it returns the existing Result unchanged.
func (a *Assembler) Finalize() Result {
	if a.result == nil {
		a.complete()
	}
	return *a.result
}

// Abort ends the turn as cancelled by the user.
func (a *Assembler) Abort() Result {
	if a.result != nil {
		return *a.result
	}
	a.turn.Phase = PhaseAborted
	var content string
	if a.salvage {
		content = a.turn.Visible
	}
	a.seal(OutcomeAborted, content, "")
	return *a.result
}

// Fail ends the turn as failed with msg.
func (a *Assembler) Fail(msg string) Result {
	if a.result == nil {
		a.fail(msg)
	}
	return *a.result
}

func (a *Assembler) complete() {
	a.turn.Phase = PhaseFinalized
	final := a.extractor.Extract(a.turn.Raw, false)
	a.turn.Visible = final.Visible
	a.turn.Thinking = false
	a.seal(OutcomeCompleted, final.Visible, "")
}

func (a *Assembler) fail(msg string) {
	a.turn.Phase = PhaseFailed
	a.turn.Thinking = false
	content := errorPrefix + msg
	if a.turn.Visible != "" {
		content = a.turn.Visible + "\n\n" + content
	}
	a.seal(OutcomeFailed, content, msg)
}

// seal freezes the turn into a Result. An empty content produces no message.
func (a *Assembler) seal(outcome Outcome, content, errMsg string) {
	a.turn.Stats.Finalize(a.clock())

	res := &Result{
		Outcome:        outcome,
		Err:            errMsg,
		ConversationID: a.turn.ConversationID,
		Usage:          a.turn.Usage,
		ToolCalls:      append([]ToolCall(nil), a.turn.ToolCalls...),
		Orphans:        append([]event.ToolResult(nil), a.turn.Orphans...),
		Stats:          a.turn.Stats,
	}
	if content != "" {
		if a.prompt != "" {
			prompt := model.NewUserMessage(a.ids, a.prompt)
			res.Prompt = &prompt
		}
		msg := model.NewAssistantMessage(a.ids, content, a.turn.Usage, a.records())
		res.Message = &msg
	}
	a.result = res
}

func (a *Assembler) records() []model.ToolCallRecord {
	if len(a.turn.ToolCalls) == 0 {
		return nil
	}
	out := make([]model.ToolCallRecord, 0, len(a.turn.ToolCalls))
	for _, tc := range a.turn.ToolCalls {
		out = append(out, model.ToolCallRecord{Name: tc.Name, CallID: tc.CallID, Result: tc.Result})
	}
	return out
}
