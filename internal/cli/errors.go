// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling and exit codes for the sirsi CLI.
//
// Commands always return errors and never print-and-return-nil. Execute
// prints the error once and maps it to an exit code.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/sirsi/internal/config"
	"github.com/jeranaias/sirsi/internal/storage"
	"github.com/jeranaias/sirsi/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general error, including a fatal
	// initialization problem such as a missing API key
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the model could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrSendFailed is returned by one-shot commands when the reply could not be
// obtained. The conversation still records the failed message.
var ErrSendFailed = errors.New("message failed")

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "history", "config")
	Action  string // Action being performed (e.g., "export", "init")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError marks bad arguments. It maps to ExitUsageError.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// configError marks a config load failure.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var initErr *config.InitializationError
	var usageErr *UsageError
	var cfgErr *configError
	switch {
	case errors.As(err, &initErr):
		return ExitGeneralError
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, ErrSendFailed):
		return ExitNetworkError
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err in the CLI's error format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))

	var initErr *config.InitializationError
	if errors.As(err, &initErr) && errors.Is(err, config.ErrMissingAPIKey) {
		fmt.Fprintln(w, DimStyle.Render("Hint: export SIRSI_API_KEY=<your Gemini API key>"))
	}
}
