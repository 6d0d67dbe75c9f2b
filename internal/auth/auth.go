// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth produces the request headers that authenticate a chat turn.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Header names sent with every chat request.
const (
	HeaderAuthorization = "Authorization"
	HeaderTenant        = "X-Tenant-Context"
)

// ErrNoToken is returned when a provider has no credential to offer.
var ErrNoToken = errors.New("auth: no token available")

// Provider produces headers for one outgoing request.
type Provider interface {
	Headers(ctx context.Context) (http.Header, error)
}

// build returns the bearer and tenant headers. An empty token or tenant is
// omitted.
func build(token, tenant string) http.Header {
	h := make(http.Header)
	if token = strings.TrimSpace(token); token != "" {
		h.Set(HeaderAuthorization, "Bearer "+token)
	}
	if tenant = strings.TrimSpace(tenant); tenant != "" {
		h.Set(HeaderTenant, tenant)
	}
	return h
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider sends a fixed token and tenant. A zero StaticProvider sends
// no auth headers, which suits local backends.
type StaticProvider struct {
	Token  string
	Tenant string
}

// Headers implements Provider.
func (p StaticProvider) Headers(ctx context.Context) (http.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return build(p.Token, p.Tenant), nil
}
