// json_output.go - JSON output for scripting.
//
// Every command can wrap its result in the same envelope so scripts can
// check "success" without knowing the command.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/stream"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Command:   command,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// AskData is the result of the ask command.
type AskData struct {
	Provider model.ProviderKind `json:"provider"`
	Model    string             `json:"model"`
	Response string             `json:"response"`
	Stats    StreamStatsData    `json:"stats"`
}

// StreamStatsData summarizes one stream.
type StreamStatsData struct {
	DurationMs int64 `json:"duration_ms"`
	TTFTMs     int64 `json:"ttft_ms"`
	Deltas     int   `json:"deltas"`
	Bytes      int   `json:"bytes"`
	Skipped    int   `json:"skipped"`
	Malformed  int   `json:"malformed"`
}

func newStreamStatsData(s stream.Stats) StreamStatsData {
	return StreamStatsData{
		DurationMs: s.Duration().Milliseconds(),
		TTFTMs:     s.TTFT().Milliseconds(),
		Deltas:     s.Deltas,
		Bytes:      s.Bytes,
		Skipped:    s.Skipped,
		Malformed:  s.Malformed,
	}
}

// ModelsData is the result of the models command.
type ModelsData struct {
	Provider model.ProviderKind `json:"provider"`
	Default  string             `json:"default"`
	Models   []model.Descriptor `json:"models"`
	Error    string             `json:"error,omitempty"`
}

// StatusData is the result of the status command.
type StatusData struct {
	Active    model.ProviderKind   `json:"active"`
	Providers []ProviderStatusData `json:"providers"`
}

// ProviderStatusData describes one provider in the status output.
type ProviderStatusData struct {
	Kind       model.ProviderKind `json:"kind"`
	Name       string             `json:"name"`
	BaseURL    string             `json:"base_url"`
	Credential string             `json:"credential,omitempty"`
	Reachable  bool               `json:"reachable"`
	Default    string             `json:"default_model,omitempty"`
}

// VersionData is the result of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}
