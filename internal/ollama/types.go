// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama speaks the native Ollama API.
package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is a chat message on the wire.
type Message struct {
	Role    string   `json:"role"`             // "system", "user", "assistant"
	Content string   `json:"content"`          // The message text
	Images  []string `json:"images,omitempty"` // Base64 images, no data: prefix
}

// ChatRequest is the request body for /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`             // Model name (e.g., "llava:13b")
	Messages []Message `json:"messages"`          // Conversation history
	Stream   bool      `json:"stream"`            // NDJSON streaming when true
	Options  *Options  `json:"options,omitempty"` // Model parameters
}

// Options holds model parameters. Only fields the client sets are sent.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is one line of a streamed /api/chat response. The last line
// has Done set and carries the timing counters.
type ChatResponse struct {
	Model      string    `json:"model"`
	CreatedAt  string    `json:"created_at"`
	Message    *Message  `json:"message,omitempty"`
	Done       bool      `json:"done"`
	DoneReason string    `json:"done_reason,omitempty"` // "stop", "length", "load"
	Error      string    `json:"error,omitempty"`       // Set when the server aborts mid-stream

	// Timing (nanoseconds), final line only
	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int   `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// ModelInfo describes one locally installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	Model      string       `json:"model,omitempty"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// ModelDetails holds model metadata.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families,omitempty"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models *[]ModelInfo `json:"models"`
}
