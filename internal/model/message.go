// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole converts a role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversation entry. Treat it as immutable: the
// constructors copy the image bytes so later edits by the caller do not
// leak into requests already built from it.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Image []byte `json:"image,omitempty"` // raw JPEG bytes, encoded by the codec
}

// NewMessage creates a message with an optional image attachment.
func NewMessage(role Role, text string, image []byte) Message {
	m := Message{Role: role, Text: text}
	if len(image) > 0 {
		m.Image = append([]byte(nil), image...)
	}
	return m
}

// NewSystemMessage creates a system message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// NewUserImageMessage creates a user message with an attached image.
func NewUserImageMessage(text string, image []byte) Message {
	return NewMessage(RoleUser, text, image)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

// HasImage reports whether an image is attached.
func (m Message) HasImage() bool {
	return len(m.Image) > 0
}
