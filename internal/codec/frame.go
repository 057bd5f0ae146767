// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import (
	"encoding/base64"
	"strings"
)

const (
	// SSEPrefix marks a Server-Sent-Events data line. Exactly these six
	// bytes are removed before the payload is parsed.
	SSEPrefix = "data: "

	// DoneSentinel is the payload that ends an SSE stream.
	DoneSentinel = "[DONE]"
)

// Framing says how a line was wrapped on the wire.
type Framing int

const (
	// FramingNone is a blank line.
	FramingNone Framing = iota

	// FramingNative is one bare JSON object per line.
	FramingNative

	// FramingSSE is a "data: " prefixed event line.
	FramingSSE
)

// String returns a short name for the framing.
func (f Framing) String() string {
	switch f {
	case FramingNative:
		return "native"
	case FramingSSE:
		return "sse"
	default:
		return "empty"
	}
}

// SplitFrame detects the framing of a single line and returns its payload.
// Trailing CR and LF are ignored so lines may be passed as read.
func SplitFrame(line string) (string, Framing) {
	line = strings.TrimRight(line, "\r\n")
	if strings.HasPrefix(line, SSEPrefix) {
		return line[len(SSEPrefix):], FramingSSE
	}
	if strings.TrimSpace(line) == "" {
		return "", FramingNone
	}
	return line, FramingNative
}

// PayloadFunc decodes the JSON payload of a frame. It is only called for
// non-empty payloads that are not the done sentinel.
type PayloadFunc func(payload []byte, framing Framing) Fragment

// Decode applies the framing rules shared by every dialect and hands the
// remaining payload to decode.
//
// Blank lines are skipped, a payload of exactly [DONE] ends the stream in
// either framing, and everything else is left to the dialect.
func Decode(line string, decode PayloadFunc) Fragment {
	payload, framing := SplitFrame(line)
	switch {
	case framing == FramingNone:
		return Skip(nil)
	case payload == DoneSentinel:
		return End("")
	case strings.TrimSpace(payload) == "":
		// "data: " with nothing after it is a keep-alive.
		return Skip(nil)
	}
	return decode([]byte(payload), framing)
}

// =============================================================================
// IMAGE HELPERS
// =============================================================================

// ImageMIME is the media type images are sent as.
const ImageMIME = "image/jpeg"

// Base64 encodes raw image bytes with standard padding.
func Base64(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// ImageDataURL returns image as an inline data URL.
func ImageDataURL(image []byte) string {
	return "data:" + ImageMIME + ";base64," + Base64(image)
}
