// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package event

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Errors returned by Parse. Use errors.Is to check.
var (
	// ErrUnknownEvent means the event name is not part of the protocol.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMalformedPayload means the payload is not a JSON object or lacks a
	// required field.
	ErrMalformedPayload = errors.New("malformed event payload")
)

const defaultErrorMessage = "unknown error"

// =============================================================================
// PARSING
// =============================================================================

// Parse builds the event named name from its JSON payload.
//
// Fields are coerced rather than strictly typed: numbers sent as strings are
// accepted, and a tool result sent as an object or array is kept as its raw
// JSON text. Optional fields (conversation title, tool result) are nil when
// absent or null.
func Parse(name string, data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s: invalid JSON", ErrMalformedPayload, name)
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return nil, fmt.Errorf("%w: %s: payload is not an object", ErrMalformedPayload, name)
	}

	switch name {
	case NameConversation:
		id, err := required(obj, name, "id")
		if err != nil {
			return nil, err
		}
		return Conversation{
			ID:    id,
			Title: optional(obj.Get("title")),
			IsNew: obj.Get("is_new").Bool(),
		}, nil

	case NameContent:
		text := obj.Get("text")
		if !text.Exists() || text.Type == gjson.Null {
			return nil, fmt.Errorf("%w: %s: missing text", ErrMalformedPayload, name)
		}
		return Content{Text: text.String()}, nil

	case NameToolCall:
		toolName, err := required(obj, name, "name")
		if err != nil {
			return nil, err
		}
		callID, err := required(obj, name, "call_id")
		if err != nil {
			return nil, err
		}
		return ToolCall{Name: toolName, CallID: callID}, nil

	case NameToolResult:
		toolName, err := required(obj, name, "name")
		if err != nil {
			return nil, err
		}
		return ToolResult{Name: toolName, Result: optional(obj.Get("result"))}, nil

	case NameTitleUpdate:
		id, err := required(obj, name, "id")
		if err != nil {
			return nil, err
		}
		return TitleUpdate{ID: id, Title: obj.Get("title").String()}, nil

	case NameDone:
		return Done{
			InputTokens:  int(obj.Get("input_tokens").Int()),
			OutputTokens: int(obj.Get("output_tokens").Int()),
		}, nil

	case NameError:
		msg := obj.Get("message").String()
		if msg == "" {
			msg = defaultErrorMessage
		}
		return Error{Message: msg}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// required returns a non-empty string field or ErrMalformedPayload.
func required(obj gjson.Result, event, field string) (string, error) {
	v := obj.Get(field)
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return "", fmt.Errorf("%w: %s: missing %s", ErrMalformedPayload, event, field)
	}
	return v.String(), nil
}

// optional returns nil for absent or null values. Strings and scalars use
// their text form; objects and arrays keep their raw JSON.
func optional(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	var s string
	if v.IsObject() || v.IsArray() {
		s = v.Raw
	} else {
		s = v.String()
	}
	return &s
}

// =============================================================================
// TYPER
// =============================================================================

// Typer converts frames into events, logging and dropping the ones that fail
// to parse so that one bad frame never ends a turn.
type Typer struct {
	log     *zap.Logger
	dropped int
}

// NewTyper creates a Typer. A nil logger disables diagnostics.
func NewTyper(log *zap.Logger) *Typer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Typer{log: log}
}

// Type returns the event for a frame, or nil when the frame was dropped.
func (t *Typer) Type(name string, data []byte) Event {
	ev, err := Parse(name, data)
	if err != nil {
		t.dropped++
		if errors.Is(err, ErrUnknownEvent) {
			t.log.Warn("dropping unknown stream event", zap.String("event", name))
		} else {
			t.log.Warn("dropping malformed stream event",
				zap.String("event", name),
				zap.ByteString("data", truncate(data, 256)),
				zap.Error(err))
		}
		return nil
	}
	return ev
}

// Dropped returns how many frames were discarded.
func (t *Typer) Dropped() int {
	return t.dropped
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
