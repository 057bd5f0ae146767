// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
)

var errNoDataList = errors.New(`response has no "data" field`)

// Codec encodes /chat/completions requests and decodes SSE chunks. The
// zero value is ready to use.
type Codec struct{}

var _ codec.Codec = Codec{}

// NewChatMessage converts a message. With an image the content becomes the
// two-part array (text, then inline JPEG data URL); otherwise a string.
func NewChatMessage(m model.Message) ChatMessage {
	if !m.HasImage() {
		return ChatMessage{Role: string(m.Role), Content: TextContent(m.Text)}
	}
	return ChatMessage{
		Role: string(m.Role),
		Content: PartsContent(
			ContentPart{Type: PartText, Text: m.Text},
			ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: codec.ImageDataURL(m.Image)}},
		),
	}
}

// BuildRequest converts a conversation into the request shape.
func BuildRequest(conv model.Conversation, modelID string, streaming bool, temperature *float64) (ChatRequest, error) {
	req := ChatRequest{
		Model:    modelID,
		Messages: make([]ChatMessage, 0, len(conv)),
		Stream:   streaming,
	}
	for i, m := range conv {
		if !m.Role.Valid() {
			return ChatRequest{}, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		req.Messages = append(req.Messages, NewChatMessage(m))
	}
	if temperature != nil {
		t := *temperature
		req.Temperature = &t
	}
	return req, nil
}

// EncodeRequest marshals the request built by BuildRequest.
func (Codec) EncodeRequest(conv model.Conversation, modelID string, streaming bool, temperature *float64) ([]byte, error) {
	req, err := BuildRequest(conv, modelID, streaming, temperature)
	if err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// DecodeFragment decodes one SSE line. Only the first choice (index 0) is
// read; a gateway asked for several completions would otherwise interleave
// them. A non-null finish_reason on that choice ends the stream after its
// text is forwarded.
func (Codec) DecodeFragment(line string) codec.Fragment {
	return codec.Decode(line, decodeChunk)
}

func decodeChunk(payload []byte, framing codec.Framing) codec.Fragment {
	var chunk StreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return codec.Skip(&codec.DecodeError{Framing: framing, Payload: string(payload), Err: err})
	}

	choice, ok := firstChoice(chunk.Choices)
	if !ok {
		// Usage chunks and other choices carry nothing to show.
		return codec.Skip(nil)
	}

	var text string
	if choice.Delta != nil {
		text = choice.Delta.Content
	}
	if choice.FinishReason != nil {
		return codec.End(text)
	}
	// Role-only openers decode to an empty Text, which is a Skip.
	return codec.Text(text)
}

// firstChoice returns the choice with index 0.
func firstChoice(choices []StreamChoice) (StreamChoice, bool) {
	for _, c := range choices {
		if c.Index == 0 {
			return c, true
		}
	}
	return StreamChoice{}, false
}

// DecodeModels reads the /models listing.
func (Codec) DecodeModels(body []byte) ([]string, error) {
	var resp ModelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errNoDataList
	}

	ids := make([]string, 0, len(*resp.Data))
	for _, m := range *resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
