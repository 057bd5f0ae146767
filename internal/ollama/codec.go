// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
)

var (
	errNoMessage    = errors.New("line has neither message nor done")
	errNoModelsList = errors.New(`response has no "models" field`)
)

// Codec encodes /api/chat requests and decodes its NDJSON lines. The zero
// value is ready to use.
type Codec struct{}

var _ codec.Codec = Codec{}

// BuildRequest converts a conversation into the native request shape.
// Images travel in the message's images array as bare base64.
func BuildRequest(conv model.Conversation, modelID string, streaming bool, temperature *float64) (ChatRequest, error) {
	req := ChatRequest{
		Model:    modelID,
		Messages: make([]Message, 0, len(conv)),
		Stream:   streaming,
	}

	for i, m := range conv {
		if !m.Role.Valid() {
			return ChatRequest{}, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		msg := Message{Role: string(m.Role), Content: m.Text}
		if m.HasImage() {
			msg.Images = []string{codec.Base64(m.Image)}
		}
		req.Messages = append(req.Messages, msg)
	}

	if temperature != nil {
		t := *temperature
		req.Options = &Options{Temperature: &t}
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

// DecodeFragment decodes one response line. A line with done set ends the
// stream after forwarding whatever text it carries.
func (Codec) DecodeFragment(line string) codec.Fragment {
	return codec.Decode(line, decodeChatLine)
}

func decodeChatLine(payload []byte, framing codec.Framing) codec.Fragment {
	var resp ChatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return codec.Skip(&codec.DecodeError{Framing: framing, Payload: string(payload), Err: err})
	}

	if resp.Error != "" {
		return codec.Skip(&codec.DecodeError{
			Framing: framing,
			Payload: string(payload),
			Err:     fmt.Errorf("server error: %s", resp.Error),
		})
	}

	var text string
	if resp.Message != nil {
		text = resp.Message.Content
	}

	if resp.Done {
		return codec.End(text)
	}
	if resp.Message == nil {
		return codec.Skip(&codec.DecodeError{Framing: framing, Payload: string(payload), Err: errNoMessage})
	}
	return codec.Text(text)
}

// DecodeModels reads the /api/tags listing.
func (Codec) DecodeModels(body []byte) ([]string, error) {
	var resp ListModelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Models == nil {
		return nil, errNoModelsList
	}

	ids := make([]string, 0, len(*resp.Models))
	for _, m := range *resp.Models {
		id := m.Name
		if id == "" {
			id = m.Model
		}
		ids = append(ids, id)
	}
	return ids, nil
}
