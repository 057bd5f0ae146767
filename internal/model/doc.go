// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the provider-neutral domain types shared by the
// codecs, the stream decoder and the provider clients.
//
// # Key Types
//
//   - Message: role, text and an optional image attachment
//   - Conversation: ordered, copy-on-append slice of messages
//   - ProviderKind: ollama (native) or openai (OpenAI-compatible)
//   - Descriptor: a listed model and whether it probably accepts images
//   - Delta: one increment of a streamed answer
//
// # Usage
//
//	conv := model.Conversation{}.Append(
//	    model.NewSystemMessage("Be brief."),
//	    model.NewUserMessage("Hello!"),
//	)
//
//	if model.SupportsImages("llava:13b") {
//	    conv = conv.Append(model.NewUserImageMessage("What is this?", jpeg))
//	}
package model
