// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"testing"
)

// =============================================================================
// IMAGE HEURISTIC TESTS
// =============================================================================

func TestSupportsImages(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"gpt-4o-mini", true},
		{"GPT-4O", true},
		{"gpt-4-turbo-2024-04-09", true},
		{"claude-3-haiku-20240307", true},
		{"llava:13b", true},
		{"llama3.2-vision:11b", true},
		{"Llama-3.2-11B-Vision-Instruct", true},
		{"llama2", false},
		{"gpt-3.5-turbo", false},
		{"gpt-4", false},
		{"mistral:7b", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			if got := SupportsImages(tc.id); got != tc.want {
				t.Errorf("SupportsImages(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(ProviderOpenAI, []string{"gpt-4o", "", "  llama2 "})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "gpt-4o" || !got[0].SupportsImages || got[0].Provider != ProviderOpenAI {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].ID != "llama2" || got[1].SupportsImages {
		t.Errorf("got[1] = %+v", got[1])
	}
}

// =============================================================================
// PROVIDER KIND TESTS
// =============================================================================

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderKind
		wantErr bool
	}{
		{"ollama", ProviderOllama, false},
		{" Ollama ", ProviderOllama, false},
		{"openai", ProviderOpenAI, false},
		{"openai-compatible", ProviderOpenAI, false},
		{"anthropic", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseProviderKind(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseProviderKind(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseProviderKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProviderKind_DisplayName(t *testing.T) {
	if got := ProviderOpenAI.DisplayName(); got != "OpenAI Compatible" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := ProviderOllama.DisplayName(); got != "Ollama" {
		t.Errorf("DisplayName() = %q", got)
	}
}

// =============================================================================
// MESSAGE AND CONVERSATION TESTS
// =============================================================================

func TestNewMessage_CopiesImage(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff}
	msg := NewUserImageMessage("look", img)

	img[0] = 0x00
	if msg.Image[0] != 0xff {
		t.Error("message image changed after caller mutated its slice")
	}
	if !msg.HasImage() {
		t.Error("HasImage() = false, want true")
	}
	if NewUserMessage("plain").HasImage() {
		t.Error("plain message reports an image")
	}
}

func TestConversation_AppendDoesNotAlias(t *testing.T) {
	base := Conversation{}.Append(NewUserMessage("one"))
	a := base.Append(NewAssistantMessage("a"))
	b := base.Append(NewAssistantMessage("b"))

	if a[1].Text != "a" || b[1].Text != "b" {
		t.Errorf("branches share storage: a=%q b=%q", a[1].Text, b[1].Text)
	}
	if len(base) != 1 {
		t.Errorf("base modified: len = %d", len(base))
	}
}

func TestConversation_WithSystem(t *testing.T) {
	conv := Conversation{NewUserMessage("hi")}

	got := conv.WithSystem("be nice")
	if len(got) != 2 || got[0].Role != RoleSystem || got[0].Text != "be nice" {
		t.Fatalf("WithSystem() = %+v", got)
	}

	if again := got.WithSystem("other"); len(again) != 2 {
		t.Errorf("second system prompt added: %+v", again)
	}
	if same := conv.WithSystem(""); len(same) != 1 {
		t.Errorf("empty prompt added a message: %+v", same)
	}
}

func TestConversation_Prune(t *testing.T) {
	conv := Conversation{NewSystemMessage("sys")}
	for i := 0; i < MaxMessages+10; i++ {
		conv = conv.Append(NewUserMessage("m"))
	}

	if len(conv) != MaxMessages {
		t.Errorf("len = %d, want %d", len(conv), MaxMessages)
	}
	if conv[0].Role != RoleSystem {
		t.Error("system message was pruned")
	}
}

func TestRole(t *testing.T) {
	if _, err := ParseRole("tool"); err == nil {
		t.Error("ParseRole(tool) succeeded, want error")
	}
	r, err := ParseRole("assistant")
	if err != nil || r != RoleAssistant {
		t.Errorf("ParseRole(assistant) = %q, %v", r, err)
	}
	if RoleUser.DisplayName() != "You" {
		t.Errorf("DisplayName() = %q", RoleUser.DisplayName())
	}
}
