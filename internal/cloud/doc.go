// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud speaks the OpenAI-compatible chat API offered by hosted
// gateways and proxies such as LiteLLM.
//
// Completions stream from {base}/chat/completions as "data: " prefixed
// Server-Sent Events ending with "data: [DONE]". Models are listed by
// {base}/models. Base URLs always end in /v1.
//
// # Key Types
//
//   - Codec: request encoding and SSE chunk decoding
//   - Content: message content, a plain string or an array of parts
//   - StreamChunk: payload of one data line
//
// # Security
//
// API keys are sent only as a bearer token and never logged. Use
// provider.Endpoint.MaskedCredential for display.
package cloud
