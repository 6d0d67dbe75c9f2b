// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/auth"
	"github.com/jeranaias/streamchat/internal/event"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/sse"
	"github.com/jeranaias/streamchat/internal/think"
	"github.com/jeranaias/streamchat/internal/turn"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInProgress is returned by Run under BusyReject when the
	// conversation already has a streaming turn.
	ErrTurnInProgress = errors.New("a turn is already in progress for this conversation")

	// ErrEmptyMessage is returned when the request has no text.
	ErrEmptyMessage = errors.New("message is empty")
)

// errIncomplete fails a turn whose stream ended without done or error.
const errIncomplete = "stream ended before completion"

// =============================================================================
// STATE
// =============================================================================

// State is the controller's view of one turn.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateAborted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func stateOf(o turn.Outcome) State {
	switch o {
	case turn.OutcomeCompleted:
		return StateCompleted
	case turn.OutcomeAborted:
		return StateAborted
	default:
		return StateFailed
	}
}

// BusyPolicy decides what Run does when the conversation is already busy.
type BusyPolicy int

const (
	// BusyReject fails the new Run with ErrTurnInProgress.
	BusyReject BusyPolicy = iota
	// BusyCancel cancels the running turn and waits for it to finish.
	BusyCancel
)

// ParseBusyPolicy parses "reject" or "cancel".
func ParseBusyPolicy(s string) (BusyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject", "":
		return BusyReject, nil
	case "cancel":
		return BusyCancel, nil
	default:
		return BusyReject, fmt.Errorf("unknown busy policy %q", s)
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller. URL is required.
type Options struct {
	// URL is the full chat endpoint
	URL string
	// Client defaults to a shared client without a global timeout
	Client *http.Client
	// Auth defaults to sending no credentials
	Auth auth.Provider

	History       HistoryStore
	Conversations ConversationList
	Logger        *zap.Logger

	// IDs stamps messages when a Request carries no IDSource
	IDs   model.IDSource
	Clock func() time.Time

	Extractor   think.Extractor
	Salvage     bool
	Busy        BusyPolicy
	Timeout     time.Duration
	ReadSize    int
	MaxLineSize int
}

// Request is one user turn.
type Request struct {
	Message string
	// ConversationID is empty to start a new conversation
	ConversationID string
	// IDs overrides the controller's identity source for this turn, so
	// sequence numbers continue the conversation's history.
	IDs model.IDSource
	// TurnID names a turn that starts a new conversation. Cancel and State
	// accept it in place of the conversation id, which is not known until
	// the backend assigns one. A random id is used when empty.
	TurnID string
}

// Controller runs chat turns. It is safe for concurrent use; at most one
// turn streams per conversation.
type Controller struct {
	url         string
	client      *http.Client
	auth        auth.Provider
	history     HistoryStore
	list        ConversationList
	log         *zap.Logger
	ids         model.IDSource
	clock       func() time.Time
	extractor   think.Extractor
	salvage     bool
	busy        BusyPolicy
	timeout     time.Duration
	readSize    int
	maxLineSize int

	turns *registry
}

// sharedStreamingClient has no overall timeout; turns are bounded by context.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid chat URL %q", opts.URL)
	}

	c := &Controller{
		url:         opts.URL,
		client:      opts.Client,
		auth:        opts.Auth,
		history:     opts.History,
		list:        opts.Conversations,
		log:         opts.Logger,
		ids:         opts.IDs,
		clock:       opts.Clock,
		extractor:   opts.Extractor,
		salvage:     opts.Salvage,
		busy:        opts.Busy,
		timeout:     opts.Timeout,
		readSize:    opts.ReadSize,
		maxLineSize: opts.MaxLineSize,
		turns:       newRegistry(),
	}
	if c.client == nil {
		c.client = sharedStreamingClient
	}
	if c.auth == nil {
		c.auth = auth.StaticProvider{}
	}
	if c.history == nil {
		c.history = nopHistory{}
	}
	if c.list == nil {
		c.list = nopList{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.ids == nil {
		c.ids = model.NewSequencerWith(c.clock, nil, 0)
	}
	if c.extractor.Open == "" || c.extractor.Close == "" {
		c.extractor = think.Default
	}
	if c.readSize <= 0 {
		c.readSize = sse.DefaultReadSize
	}
	if c.maxLineSize <= 0 {
		c.maxLineSize = sse.DefaultMaxLineSize
	}
	return c, nil
}

// State returns the state of the running or most recent turn for a
// conversation, or for the TurnID of a turn that started a new one.
func (c *Controller) State(conversationID string) State {
	return c.turns.state(conversationID)
}

// Cancel cancels the running turn for a conversation id or a new
// conversation's TurnID. It reports whether a turn was running.
func (c *Controller) Cancel(conversationID string) bool {
	cm, ok := c.turns.lookup(conversationID)
	if ok {
		cm.cancel()
	}
	return ok
}

// =============================================================================
// RUN
// =============================================================================

// Run executes one turn. Outcomes (completed, aborted, failed) are reported
// through the returned Result and obs; the error is non-nil only when no
// turn was started.
func (c *Controller) Run(ctx context.Context, req Request, obs Observer) (*turn.Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if obs == nil {
		obs = ObserverFuncs{}
	}

	key := req.ConversationID
	if key == "" {
		if req.TurnID == "" {
			req.TurnID = uuid.NewString()
		}
		key = req.TurnID
	}

	cm, ctx, err := c.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		c.turns.release(cm)
		cm.finish()
	}()

	t := &turnRun{
		c:     c,
		cm:    cm,
		obs:   obs,
		known: req.ConversationID,
	}
	res := t.run(ctx, req)

	t.setState(stateOf(res.Outcome))
	c.persist(ctx, res, t.assigned)
	obs.OnComplete(res)
	return &res, nil
}

// acquire registers a new turn for key, applying the busy policy.
func (c *Controller) acquire(ctx context.Context, key string) (*cancelManager, context.Context, error) {
	for {
		turnCtx, cancel := context.WithCancel(ctx)
		cm := newCancelManager(cancel)

		other, ok := c.turns.claim(key, cm)
		if ok {
			return cm, turnCtx, nil
		}
		cancel()

		if c.busy == BusyReject {
			return nil, nil, ErrTurnInProgress
		}
		c.log.Info("cancelling running turn", zap.String("conversation_id", key))
		other.cancel()
		select {
		case <-other.done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// persist appends the prompt and reply to history and refreshes the list
// when the backend created a conversation. Failures are logged only.
func (c *Controller) persist(ctx context.Context, res turn.Result, created bool) {
	ctx = context.WithoutCancel(ctx)
	id := res.ConversationID

	if id == "" {
		if res.Message != nil {
			c.log.Warn("turn finished without a conversation id; not persisted")
		}
		return
	}

	if res.Message != nil {
		var msgs []model.Message
		if res.Prompt != nil {
			msgs = append(msgs, *res.Prompt)
		}
		msgs = append(msgs, *res.Message)
		if err := c.history.Append(ctx, id, msgs...); err != nil {
			c.log.Error("failed to persist messages", zap.String("conversation_id", id), zap.Error(err))
		}
	}

	if created {
		if err := c.list.Refresh(ctx); err != nil {
			c.log.Warn("failed to refresh conversation list", zap.Error(err))
		}
	}
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// turnRun is the per-turn state of one Run call.
type turnRun struct {
	c        *Controller
	cm       *cancelManager
	obs      Observer
	asm      *turn.Assembler
	known    string
	assigned bool
}

func (t *turnRun) setState(s State) {
	t.cm.setState(s)
	if so, ok := t.obs.(StateObserver); ok {
		so.OnState(s)
	}
}

func (t *turnRun) run(ctx context.Context, req Request) turn.Result {
	c := t.c
	ids := req.IDs
	if ids == nil {
		ids = c.ids
	}

	t.asm = turn.New(
		turn.WithIDSource(ids),
		turn.WithClock(c.clock),
		turn.WithExtractor(c.extractor),
		turn.WithSalvage(c.salvage),
		turn.WithLogger(c.log),
		turn.WithConversationID(req.ConversationID),
		turn.WithPrompt(req.Message),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	t.setState(StateRequesting)
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return t.interrupted(ctx, err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return t.interrupted(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := handleErrorResponse(resp)
		c.log.Warn("chat request rejected",
			zap.Int("status", httpErr.Status),
			zap.String("message", httpErr.Message))
		return t.asm.Fail(httpErr.Message)
	}

	t.setState(StateStreaming)
	return t.stream(ctx, resp.Body)
}

// stream pumps frames from body through the typer into the assembler until
// a terminal event, the end of the body, or cancellation.
func (t *turnRun) stream(ctx context.Context, body io.Reader) turn.Result {
	c := t.c
	reader := sse.NewReaderSize(ctx, body, c.readSize, c.maxLineSize)
	typer := event.NewTyper(c.log)

	defer func() {
		if n := reader.Dropped(); n > 0 {
			c.log.Warn("dropped oversized stream lines", zap.Int("count", n))
		}
	}()

	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return t.asm.Fail(errIncomplete)
		}
		if err != nil {
			return t.interrupted(ctx, err)
		}

		ev := typer.Type(frame.Event, frame.Data)
		if ev == nil {
			continue
		}

		deltas, err := t.asm.Apply(ev)
		if err != nil {
			c.log.Debug("stream event not applied", zap.String("event", ev.EventName()), zap.Error(err))
		}
		for _, d := range deltas {
			t.collaborate(ctx, d)
			t.obs.OnDelta(d)
		}

		if t.asm.Phase().IsTerminal() {
			return t.asm.Finalize()
		}
	}
}

// collaborate forwards conversation-level deltas to the collaborators.
func (t *turnRun) collaborate(ctx context.Context, d turn.Delta) {
	c := t.c
	switch d := d.(type) {
	case turn.ConversationAssigned:
		t.assigned = true
		c.turns.alias(d.ID, t.cm)
		c.log.Info("conversation created", zap.String("conversation_id", d.ID))
		if d.Title != nil {
			t.updateTitle(ctx, d.ID, *d.Title)
		}
	case turn.TitleUpdated:
		t.updateTitle(ctx, d.ID, d.Title)
	}
}

func (t *turnRun) updateTitle(ctx context.Context, id, title string) {
	if err := t.c.list.UpdateTitle(context.WithoutCancel(ctx), id, title); err != nil {
		t.c.log.Warn("failed to update conversation title",
			zap.String("conversation_id", id), zap.Error(err))
	}
}

// interrupted ends the turn after a transport or context error. Caller
// cancellation aborts; anything else, a deadline included, fails.
func (t *turnRun) interrupted(ctx context.Context, err error) turn.Result {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		t.c.log.Info("turn cancelled")
		return t.asm.Abort()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		t.c.log.Warn("turn timed out", zap.Error(err))
		return t.asm.Fail("request timed out")
	default:
		t.c.log.Warn("chat stream failed", zap.Error(err))
		return t.asm.Fail(err.Error())
	}
}
