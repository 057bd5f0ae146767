// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama speaks the native Ollama API.
//
// Chat completions stream from /api/chat as one JSON object per line and
// end with a line whose "done" field is true. Installed models are listed
// by /api/tags, which is also the reachability probe target.
//
// # Key Types
//
//   - Codec: request encoding and line decoding for the native format
//   - ChatRequest, ChatResponse: wire shapes for /api/chat
//   - ListModelsResponse: wire shape for /api/tags
//
// # Usage
//
//	client := ollama.New(provider.Options{Logger: logger})
//	if err := client.Configure("gpu-box:11434", ""); err != nil {
//	    return err
//	}
//	s, err := client.Chat(ctx, "llava:13b", conv, provider.ChatOptions{})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for d, err := range s.Deltas() {
//	    ...
//	}
//
// EnsureRunning can launch "ollama serve" when the endpoint is local and
// nothing answers yet.
package ollama
