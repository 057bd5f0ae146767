// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for enchanted commands.
//
// Handlers always return errors; Run's caller displays them once and maps
// them to an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/enchanted/internal/config"
	"github.com/jeranaias/enchanted/internal/ollama"
	"github.com/jeranaias/enchanted/internal/provider"
	"github.com/jeranaias/enchanted/internal/transport"
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
	// ExitNetworkError indicates the server could not be reached
	ExitNetworkError = 4
	// ExitHTTPError indicates the server answered with an error status
	ExitHTTPError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Message, e.Example)
	}
	return e.Message
}

// ConfigError wraps a failure to load or save the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: "missing " + argName, Example: usage}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode picks the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var cfgErr *ConfigError
	var verrs config.ValidationErrors
	if errors.As(err, &cfgErr) || errors.As(err, &verrs) || provider.IsConfigurationError(err) {
		return ExitConfigError
	}

	if transport.IsHTTPError(err) {
		return ExitHTTPError
	}

	if transport.IsTransportError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ollama.ErrNotLocal) ||
		errors.Is(err, ollama.ErrNotInstalled) {
		return ExitNetworkError
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err for a human, or as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}
