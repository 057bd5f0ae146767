// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// MESSAGE CONTENT
// =============================================================================

// Content part types.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Content is the "content" field of a chat message. On the wire it is
// either a plain string or an array of typed parts; exactly one form is
// used. Parts is nil for the string form.
type Content struct {
	Text  string
	Parts []ContentPart
}

// ContentPart is one element of the array form.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image, here always an inline data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// TextContent returns the plain string form.
func TextContent(s string) Content {
	return Content{Text: s}
}

// PartsContent returns the array form.
func PartsContent(parts ...ContentPart) Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Content{Parts: parts}
}

// IsParts reports whether c uses the array form.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// String returns the text of c, joining text parts for the array form.
func (c Content) String() string {
	if !c.IsParts() {
		return c.Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Type == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// MarshalJSON writes the string or the array, never both.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

var errContentShape = errors.New("content must be a string or an array of parts")

// UnmarshalJSON picks the form from the first JSON token.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return errContentShape
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
	case '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("content parts: %w", err)
		}
		*c = PartsContent(parts...)
	case 'n':
		*c = Content{}
	default:
		return errContentShape
	}
	return nil
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage is a chat message on the wire.
type ChatMessage struct {
	Role    string  `json:"role"`    // "system", "user", "assistant"
	Content Content `json:"content"` // String, or text + image_url parts
}

// ChatRequest is the request body for /chat/completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// StreamChunk is the payload of one SSE data line.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Object  string         `json:"object,omitempty"`
	Created int64          `json:"created,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices,omitempty"`
}

// StreamChoice is one choice within a chunk. FinishReason is nil until the
// choice is complete.
type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        *StreamDelta `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason"`
}

// StreamDelta is the incremental message of a choice.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ModelsResponse is the response from /models.
type ModelsResponse struct {
	Object string       `json:"object"`
	Data   *[]ModelItem `json:"data"`
}

// ModelItem is one listed model.
type ModelItem struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
