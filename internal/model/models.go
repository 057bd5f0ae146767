// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// =============================================================================
// PROVIDER KIND
// =============================================================================

// ProviderKind identifies the wire dialect a backend speaks.
type ProviderKind string

const (
	// ProviderOllama is the native Ollama API (NDJSON streaming).
	ProviderOllama ProviderKind = "ollama"

	// ProviderOpenAI is any OpenAI-compatible gateway (SSE streaming).
	ProviderOpenAI ProviderKind = "openai"
)

// ProviderKinds lists every supported provider in display order.
var ProviderKinds = []ProviderKind{ProviderOllama, ProviderOpenAI}

// String returns the string representation of the kind.
func (k ProviderKind) String() string {
	return string(k)
}

// DisplayName returns the name shown to users.
func (k ProviderKind) DisplayName() string {
	switch k {
	case ProviderOllama:
		return "Ollama"
	case ProviderOpenAI:
		return "OpenAI Compatible"
	default:
		return string(k)
	}
}

// Valid reports whether k is a supported provider.
func (k ProviderKind) Valid() bool {
	return k == ProviderOllama || k == ProviderOpenAI
}

// ParseProviderKind parses a provider name. A few common aliases are
// accepted.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ollama", "native":
		return ProviderOllama, nil
	case "openai", "openai-compatible", "openai_compatible", "oai":
		return ProviderOpenAI, nil
	}
	return "", fmt.Errorf("unknown provider %q (want ollama or openai)", s)
}

// =============================================================================
// MODEL DESCRIPTOR
// =============================================================================

// Descriptor describes one model offered by a provider. It is derived from
// the provider's listing, so SupportsImages is a guess and not metadata.
type Descriptor struct {
	ID             string       `json:"id"`
	Provider       ProviderKind `json:"provider"`
	SupportsImages bool         `json:"supports_images"`
}

// visionMarkers are identifier fragments of model families known to accept
// images. Families not listed here are reported as text-only.
var visionMarkers = []string{
	"vision",
	"gpt-4o",
	"gpt-4-turbo",
	"claude-3",
	"llava",
}

// SupportsImages reports whether a model identifier looks image-capable.
// Matching is a case-insensitive substring test.
func SupportsImages(id string) bool {
	folded := cases.Fold().String(id)
	for _, marker := range visionMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// Describe builds descriptors for a list of identifiers. Empty
// identifiers are dropped; order is preserved.
func Describe(kind ProviderKind, ids []string) []Descriptor {
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, Descriptor{
			ID:             id,
			Provider:       kind,
			SupportsImages: SupportsImages(id),
		})
	}
	return out
}

// =============================================================================
// CHAT DELTA
// =============================================================================

// Delta is one increment of a streamed answer. Exactly one delta per
// request has Final set, and it is always the last one.
type Delta struct {
	Text  string `json:"text,omitempty"`
	Final bool   `json:"done"`
}

// HasText reports whether the delta carries any text.
func (d Delta) HasText() bool {
	return d.Text != ""
}
