// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// MaxMessages bounds the history a Conversation keeps when appended to.
// Older non-system messages are pruned first.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of messages. Append and the other
// helpers return a new Conversation and never modify the receiver's
// backing array, so a slice handed to a request cannot change under it.
type Conversation []Message

// Append returns a copy of c with msgs added at the end.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	out = append(out, msgs...)
	return out.prune()
}

// HasSystem reports whether any message has the system role.
func (c Conversation) HasSystem() bool {
	for _, m := range c {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

// WithSystem returns c with a leading system message, unless the prompt
// is empty or c already carries one.
func (c Conversation) WithSystem(prompt string) Conversation {
	if prompt == "" || c.HasSystem() {
		return c
	}
	out := make(Conversation, 0, len(c)+1)
	out = append(out, NewSystemMessage(prompt))
	return append(out, c...)
}

// Last returns the final message and true, or false when c is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// HasImages reports whether any message carries an image.
func (c Conversation) HasImages() bool {
	for _, m := range c {
		if m.HasImage() {
			return true
		}
	}
	return false
}

// prune drops the oldest non-system messages once the history is over
// MaxMessages.
func (c Conversation) prune() Conversation {
	excess := len(c) - MaxMessages
	if excess <= 0 {
		return c
	}
	out := make(Conversation, 0, MaxMessages)
	for _, m := range c {
		if excess > 0 && m.Role != RoleSystem {
			excess--
			continue
		}
		out = append(out, m)
	}
	return out
}
