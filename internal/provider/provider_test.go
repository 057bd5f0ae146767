// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/transport"
)

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		raw    string
		suffix string
		want   string
	}{
		{"example.com:4000", "/v1", "http://example.com:4000/v1"},
		{"http://x/v1/", "/v1", "http://x/v1"},
		{"http://x/v1", "/v1", "http://x/v1"},
		{"http://x", "/v1", "http://x/v1"},
		{"http://x/", "/v1", "http://x/v1"},
		{"https://gateway.example.com/openai//", "/v1", "https://gateway.example.com/openai/v1"},
		{"  localhost:11434  ", "", "http://localhost:11434"},
		{"http://localhost:11434/", "", "http://localhost:11434"},
		{"HTTPS://Host.Example:8443/api/", "", "https://Host.Example:8443/api"},
		{"http://x/v1?key=1#frag", "/v1", "http://x/v1"},
		{"10.0.0.5:4000/v1/", "/v1", "http://10.0.0.5:4000/v1"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizeEndpoint(tc.raw, tc.suffix)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeEndpoint_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://files.example.com", "http://", "http://exa mple.com", "http://:4000"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizeEndpoint(raw, "/v1")
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err), "got %T", err)
		})
	}
}

func TestEndpoint(t *testing.T) {
	ep := Endpoint{BaseURL: "http://x/v1/"}
	assert.Equal(t, "http://x/v1/models", ep.URL("models"))
	assert.Equal(t, "http://x/v1/chat/completions", ep.URL("/chat/completions"))
	assert.Equal(t, "[not set]", ep.MaskedCredential())
	assert.False(t, ep.HasCredential())

	ep.Credential = "sk-very-secret"
	masked := ep.MaskedCredential()
	assert.NotContains(t, masked, "secret")
	assert.Contains(t, masked, "length=14")
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

// echoCodec sends the last message text and reads {"t":"..."} lines.
type echoCodec struct{}

func (echoCodec) EncodeRequest(conv model.Conversation, modelID string, streaming bool, temperature *float64) ([]byte, error) {
	last, _ := conv.Last()
	return json.Marshal(map[string]any{"model": modelID, "prompt": last.Text, "stream": streaming})
}

func (echoCodec) DecodeFragment(line string) codec.Fragment {
	return codec.Decode(line, func(p []byte, f codec.Framing) codec.Fragment {
		var v struct{ T string }
		if err := json.Unmarshal(p, &v); err != nil {
			return codec.Skip(&codec.DecodeError{Framing: f, Payload: string(p), Err: err})
		}
		return codec.Text(v.T)
	})
}

func (echoCodec) DecodeModels(body []byte) ([]string, error) {
	var ids []string
	err := json.Unmarshal(body, &ids)
	return ids, err
}

func testDialect(defaultURL string) Dialect {
	return Dialect{
		Kind:       model.ProviderOpenAI,
		DefaultURL: defaultURL,
		Suffix:     "/v1",
		ChatPath:   "chat",
		ModelsPath: "models",
		Codec:      echoCodec{},
	}
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`["gpt-4o-mini","llama2"]`))
		case "/v1/chat":
			var req struct{ Prompt string }
			json.NewDecoder(r.Body).Decode(&req)
			for _, word := range strings.Fields(req.Prompt) {
				w.Write([]byte(`data: {"T":"` + word + `"}` + "\n"))
				w.(http.Flusher).Flush()
			}
			w.Write([]byte("data: [DONE]\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ConfigureKeepsPreviousOnError(t *testing.T) {
	c := NewClient(testDialect("http://localhost:4000"), Options{Logger: zerolog.Nop()})
	assert.Equal(t, "http://localhost:4000/v1", c.Endpoint().BaseURL)

	require.NoError(t, c.Configure("gateway:8080", " key "))
	assert.Equal(t, "http://gateway:8080/v1", c.Endpoint().BaseURL)
	assert.Equal(t, "key", c.Endpoint().Credential)

	err := c.Configure("ftp://nope", "other")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, "http://gateway:8080/v1", c.Endpoint().BaseURL)
	assert.Equal(t, "key", c.Endpoint().Credential)

	require.NoError(t, c.Configure("", ""))
	assert.Equal(t, "http://localhost:4000/v1", c.Endpoint().BaseURL, "empty endpoint selects default")
}

func TestClient_ListModelsAndReachable(t *testing.T) {
	server := newEchoServer(t)
	c := NewClient(testDialect(server.URL), Options{Logger: zerolog.Nop()})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Descriptor{
		{ID: "gpt-4o-mini", Provider: model.ProviderOpenAI, SupportsImages: true},
		{ID: "llama2", Provider: model.ProviderOpenAI, SupportsImages: false},
	}, models)

	assert.True(t, c.Reachable(context.Background()))

	require.NoError(t, c.Configure(server.URL+"/elsewhere", ""))
	assert.False(t, c.Reachable(context.Background()))
	_, err = c.ListModels(context.Background())
	assert.ErrorIs(t, err, transport.ErrNotFound)
}

func TestClient_ChatValidation(t *testing.T) {
	c := NewClient(testDialect("http://localhost:4000"), Options{Logger: zerolog.Nop()})
	conv := model.Conversation{model.NewUserMessage("hi")}

	_, err := c.Chat(context.Background(), " ", conv, ChatOptions{})
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = c.Chat(context.Background(), "m", nil, ChatOptions{})
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestClient_ChatConcurrentNoCrossTalk(t *testing.T) {
	server := newEchoServer(t)
	c := NewClient(testDialect(server.URL), Options{Logger: zerolog.Nop()})

	prompts := []string{"a b c d e f", "one two three four", "x y z"}
	results := make([]string, len(prompts))
	errs := make([]error, len(prompts))

	var wg sync.WaitGroup
	for i, p := range prompts {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			s, err := c.Chat(context.Background(), "m", model.Conversation{model.NewUserMessage(p)}, ChatOptions{})
			if err != nil {
				errs[i] = err
				return
			}
			var words []string
			for {
				d, err := s.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					errs[i] = err
					return
				}
				if d.Text != "" {
					words = append(words, d.Text)
				}
			}
			results[i] = strings.Join(words, " ")
		}(i, p)
	}
	wg.Wait()

	for i, p := range prompts {
		require.NoError(t, errs[i])
		assert.Equal(t, p, results[i])
	}
}

func TestClient_ChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(testDialect(server.URL), Options{Logger: zerolog.Nop()})
	_, err := c.Chat(context.Background(), "m", model.Conversation{model.NewUserMessage("hi")}, ChatOptions{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, transport.StatusCode(err))
}

func TestTemperature(t *testing.T) {
	p := Temperature(0.2)
	require.NotNil(t, p)
	assert.InDelta(t, 0.2, *p, 1e-9)
}
