// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by every command.
//
// Handlers always return errors; main decides how to display them.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/storage"
)

// =============================================================================
// EXIT CODES
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
	// ExitStorageError indicates the event store could not be used
	ExitStorageError = 4
	// ExitCancelled indicates the user declined a confirmation
	ExitCancelled = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrCancelled is returned when a confirmation is declined.
var ErrCancelled = errors.New("cancelled")

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "export")
	Action  string // Action being performed (e.g., "write")
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewCommandError creates a new command error.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	if errors.Is(err, ErrCancelled) {
		return ExitCancelled
	}

	var validationErr config.ValidateErrors
	if errors.As(err, &validationErr) {
		return ExitConfigError
	}
	var fieldErr config.ValidationError
	if errors.As(err, &fieldErr) {
		return ExitConfigError
	}

	var trackingErr *storage.TrackingError
	if errors.As(err, &trackingErr) || errors.Is(err, storage.ErrUnavailable) {
		return ExitStorageError
	}

	return ExitGeneralError
}

// DisplayError writes err in the output mode of the command.
func DisplayError(w io.Writer, cmd Command, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(cmd.String(), err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
