// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/provider"
	"github.com/jeranaias/enchanted/internal/transport"
)

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestBuildRequest(t *testing.T) {
	conv := model.Conversation{
		model.NewSystemMessage("be brief"),
		model.NewUserImageMessage("what is this?", []byte{1, 2, 3}),
	}
	temp := 0.7

	req, err := BuildRequest(conv, "llava", true, &temp)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}

	if req.Model != "llava" || !req.Stream {
		t.Errorf("req = %+v", req)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Images != nil {
		t.Errorf("system message = %+v", req.Messages[0])
	}
	if got := req.Messages[1].Images; len(got) != 1 || got[0] != "AQID" {
		t.Errorf("Images = %v, want [AQID]", got)
	}
	if req.Options == nil || *req.Options.Temperature != 0.7 {
		t.Errorf("Options = %+v", req.Options)
	}

	temp = 0.1
	if *req.Options.Temperature != 0.7 {
		t.Error("request aliases the caller's temperature")
	}
}

func TestEncodeRequest_OmitsUnset(t *testing.T) {
	body, err := Codec{}.EncodeRequest(model.Conversation{model.NewUserMessage("hi")}, "llama2", true, nil)
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}

	s := string(body)
	for _, absent := range []string{"options", "images", "temperature"} {
		if strings.Contains(s, absent) {
			t.Errorf("body %s contains %q", s, absent)
		}
	}
	if !strings.Contains(s, `"content":"hi"`) {
		t.Errorf("body %s missing content", s)
	}
}

func TestEncodeRequest_RejectsUnknownRole(t *testing.T) {
	conv := model.Conversation{{Role: "tool", Text: "x"}}
	if _, err := (Codec{}).EncodeRequest(conv, "m", true, nil); err == nil {
		t.Error("expected error for unknown role")
	}
}

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecodeFragment(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		kind      codec.Kind
		text      string
		malformed bool
	}{
		{"text", `{"model":"llama2","message":{"role":"assistant","content":"Hi"},"done":false}`, codec.KindText, "Hi", false},
		{"empty content", `{"message":{"role":"assistant","content":""},"done":false}`, codec.KindSkip, "", false},
		{"done", `{"model":"llama2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":12}`, codec.KindEnd, "", false},
		{"done with text", `{"message":{"role":"assistant","content":"."},"done":true}`, codec.KindEnd, ".", false},
		{"done without message", `{"done":true}`, codec.KindEnd, "", false},
		{"server error", `{"error":"model requires more system memory"}`, codec.KindSkip, "", true},
		{"not json", `not json at all`, codec.KindSkip, "", true},
		{"wrong schema", `{"message":"oops","done":false}`, codec.KindSkip, "", true},
		{"no message", `{"model":"x"}`, codec.KindSkip, "", true},
		{"blank", "", codec.KindSkip, "", false},
		{"sse wrapped", `data: {"message":{"role":"assistant","content":"x"},"done":false}`, codec.KindText, "x", false},
		{"sentinel", "data: [DONE]", codec.KindEnd, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Codec{}.DecodeFragment(tc.line)
			if got.Kind != tc.kind || got.Text != tc.text {
				t.Errorf("DecodeFragment() = %v %q, want %v %q", got.Kind, got.Text, tc.kind, tc.text)
			}
			if got.Malformed() != tc.malformed {
				t.Errorf("Malformed() = %v, want %v (reason %v)", got.Malformed(), tc.malformed, got.Reason)
			}
		})
	}
}

func TestDecodeModels(t *testing.T) {
	body := `{"models":[
		{"name":"llava:13b","model":"llava:13b","size":8000000000,"details":{"family":"llama"}},
		{"name":"","model":"mistral:7b"}
	]}`

	ids, err := Codec{}.DecodeModels([]byte(body))
	if err != nil {
		t.Fatalf("DecodeModels() error = %v", err)
	}
	if strings.Join(ids, ",") != "llava:13b,mistral:7b" {
		t.Errorf("ids = %v", ids)
	}

	if _, err := (Codec{}).DecodeModels([]byte(`{"data":[]}`)); !errors.Is(err, errNoModelsList) {
		t.Errorf("missing models field error = %v", err)
	}
	if _, err := (Codec{}).DecodeModels([]byte(`<html>`)); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama2"},{"name":"llava:7b"}]}`))
		case "/api/chat":
			var req ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/x-ndjson")
			for _, part := range []string{"Hel", "lo"} {
				w.Write([]byte(`{"model":"` + req.Model + `","message":{"role":"assistant","content":"` + part + `"},"done":false}` + "\n"))
				w.(http.Flusher).Flush()
			}
			w.Write([]byte("{garbage\n"))
			w.Write([]byte(`{"model":"` + req.Model + `","message":{"role":"assistant","content":""},"done":true}` + "\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Chat(t *testing.T) {
	server := newOllamaServer(t)
	client := New(provider.Options{Logger: zerolog.Nop()})
	if err := client.Configure(server.URL+"/", ""); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := client.Endpoint().BaseURL; got != server.URL {
		t.Errorf("BaseURL = %q, want %q (no suffix for native)", got, server.URL)
	}

	s, err := client.Chat(context.Background(), "llama2", model.Conversation{model.NewUserMessage("hi")}, provider.ChatOptions{})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	text, err := s.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
}

func TestClient_ListModels(t *testing.T) {
	server := newOllamaServer(t)
	client := New(provider.Options{Logger: zerolog.Nop()})
	client.Configure(server.URL, "")

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].SupportsImages || !models[1].SupportsImages {
		t.Errorf("models = %+v", models)
	}
	if models[0].Provider != model.ProviderOllama {
		t.Errorf("Provider = %q", models[0].Provider)
	}
	if !client.Reachable(context.Background()) {
		t.Error("Reachable() = false")
	}
}

// =============================================================================
// STARTUP TESTS
// =============================================================================

func TestIsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"http://localhost:11434":     true,
		"http://127.0.0.1:11434":     true,
		"http://127.5.0.1":           true,
		"http://[::1]:11434":         true,
		"http://LOCALHOST":           true,
		"http://192.168.1.10:11434":  false,
		"https://ollama.example.com": false,
	}
	for base, want := range tests {
		if got := IsLocalEndpoint(provider.Endpoint{BaseURL: base}); got != want {
			t.Errorf("IsLocalEndpoint(%q) = %v, want %v", base, got, want)
		}
	}
}

func TestEnsureRunning(t *testing.T) {
	server := newOllamaServer(t)
	tr := transport.New(transport.Options{ProbeTimeout: 100 * time.Millisecond, Logger: zerolog.Nop()})
	client := New(provider.Options{Transport: tr, Logger: zerolog.Nop()})

	client.Configure(server.URL, "")
	if err := EnsureRunning(context.Background(), client, time.Second, zerolog.Nop()); err != nil {
		t.Errorf("EnsureRunning() on a live server = %v", err)
	}

	client.Configure("192.0.2.1:11434", "")
	if err := EnsureRunning(context.Background(), client, time.Second, zerolog.Nop()); !errors.Is(err, ErrNotLocal) {
		t.Errorf("EnsureRunning() on a remote endpoint = %v, want ErrNotLocal", err)
	}
}
