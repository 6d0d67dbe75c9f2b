// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Commands return errors; main decides how to display them and which exit
// code to use.
package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/streamchat/internal/auth"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/turn"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates missing or rejected credentials
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitInterrupted indicates the user stopped the command
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command usage.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TurnError reports a turn that did not complete.
type TurnError struct {
	Outcome turn.Outcome
	Message string
}

func (e *TurnError) Error() string {
	if e.Outcome == turn.OutcomeAborted {
		return "stopped"
	}
	return e.Message
}

// turnError converts a finished turn into an error, nil when it completed.
func turnError(res *turn.Result) error {
	if res == nil || res.Outcome == turn.OutcomeCompleted {
		return nil
	}
	return &TurnError{Outcome: res.Outcome, Message: res.Err}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode returns the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	if errors.Is(err, auth.ErrNoToken) {
		return ExitAuthError
	}

	if errors.Is(err, storage.ErrConversationNotFound) {
		return ExitNotFoundError
	}

	if errors.Is(err, session.ErrTurnInProgress) {
		return ExitGeneralError
	}

	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		switch {
		case turnErr.Outcome == turn.OutcomeAborted:
			return ExitInterrupted
		case turnErr.Message == "request timed out":
			return ExitTimeoutError
		default:
			return ExitNetworkError
		}
	}

	return ExitGeneralError
}
