// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/provider"
)

const (
	// DefaultURL is where a local Ollama listens out of the box.
	DefaultURL = "http://localhost:11434"

	// ChatPath streams completions as one JSON object per line.
	ChatPath = "api/chat"

	// ModelsPath lists installed models; it doubles as the probe target.
	ModelsPath = "api/tags"
)

// Dialect describes the native Ollama API. Base URLs take no suffix.
func Dialect() provider.Dialect {
	return provider.Dialect{
		Kind:       model.ProviderOllama,
		DefaultURL: DefaultURL,
		ChatPath:   ChatPath,
		ModelsPath: ModelsPath,
		Codec:      Codec{},
	}
}

// New creates a client for a native Ollama server at DefaultURL. Call
// Configure to point it elsewhere or to add a bearer token for servers
// behind an authenticating proxy.
func New(opts provider.Options) *provider.Client {
	return provider.NewClient(Dialect(), opts)
}
