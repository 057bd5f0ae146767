// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/provider"
)

const (
	// DefaultURL matches a LiteLLM proxy on its default port.
	DefaultURL = "http://localhost:4000/v1"

	// PathSuffix is appended to every configured base URL.
	PathSuffix = "/v1"

	// ChatPath streams completions as Server-Sent Events.
	ChatPath = "chat/completions"

	// ModelsPath lists models; it doubles as the probe target.
	ModelsPath = "models"
)

// Dialect describes an OpenAI-compatible gateway.
func Dialect() provider.Dialect {
	return provider.Dialect{
		Kind:       model.ProviderOpenAI,
		DefaultURL: DefaultURL,
		Suffix:     PathSuffix,
		ChatPath:   ChatPath,
		ModelsPath: ModelsPath,
		Codec:      Codec{},
	}
}

// New creates a client for an OpenAI-compatible gateway at DefaultURL.
// Configure sets the gateway and its API key.
func New(opts provider.Options) *provider.Client {
	return provider.NewClient(Dialect(), opts)
}
