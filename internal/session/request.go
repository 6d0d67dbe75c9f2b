// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 * 1024

// defaultErrorMessage is shown when a failed response carries no usable text.
const defaultErrorMessage = "Chat request failed"

// chatRequest is the POST body. ConversationID is null for a new chat.
type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

// HTTPError is a non-2xx response from the chat endpoint.
type HTTPError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat request failed with status %d: %s", e.Status, e.Message)
}

// newRequest builds the streaming chat request.
func (c *Controller) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	body := chatRequest{Message: req.Message}
	if req.ConversationID != "" {
		id := req.ConversationID
		body.ConversationID = &id
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	headers, err := c.auth.Headers(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	return httpReq, nil
}

// handleErrorResponse turns a non-2xx response into an HTTPError, taking the
// message from the body's "message" or "detail" field when present.
func handleErrorResponse(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{Status: resp.StatusCode, Message: errorMessage(body)}
}

func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return defaultErrorMessage
	}
	res := gjson.ParseBytes(body)

	if msg := res.Get("message"); msg.Type == gjson.String && strings.TrimSpace(msg.Str) != "" {
		return msg.Str
	}

	detail := res.Get("detail")
	switch {
	case detail.Type == gjson.String && strings.TrimSpace(detail.Str) != "":
		return detail.Str
	case detail.IsArray():
		// Validation errors: [{"loc": [...], "msg": "..."}]
		if msg := detail.Get("0.msg"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
	}
	return defaultErrorMessage
}
