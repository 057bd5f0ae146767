// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the interface every model backend implements
// and the engine shared by the Ollama and OpenAI-compatible clients.
package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/stream"
)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Provider is a configured model backend.
type Provider interface {
	// Kind reports the wire dialect.
	Kind() model.ProviderKind

	// Configure replaces the endpoint and credential. An endpoint that
	// cannot be normalized is rejected and the previous one is kept.
	Configure(endpoint, credential string) error

	// Endpoint returns the configuration requests are currently built from.
	Endpoint() Endpoint

	// ListModels fetches the models the backend offers.
	ListModels(ctx context.Context) ([]model.Descriptor, error)

	// Reachable probes the model listing with a bounded timeout. It never
	// fails; any problem is reported as false.
	Reachable(ctx context.Context) bool

	// Chat starts a streaming completion. Calls are independent and may
	// overlap.
	Chat(ctx context.Context, modelID string, conv model.Conversation, opts ChatOptions) (*stream.Stream, error)
}

// ChatOptions are per-request generation settings.
type ChatOptions struct {
	// Temperature overrides the server default when set.
	Temperature *float64
}

// Temperature returns a pointer to t, for building ChatOptions inline.
func Temperature(t float64) *float64 {
	return &t
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoModel is returned by Chat when no model identifier is given.
	ErrNoModel = errors.New("no model selected")

	// ErrEmptyConversation is returned by Chat for an empty conversation.
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// ConfigurationError reports an endpoint that cannot be used.
type ConfigurationError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("invalid endpoint %q: %s", e.Endpoint, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// =============================================================================
// ENDPOINT
// =============================================================================

// Endpoint is a normalized base URL and its credential. It is a value:
// requests copy it when they are built and never see a later Configure.
type Endpoint struct {
	Kind       model.ProviderKind `json:"kind"`
	BaseURL    string             `json:"base_url"`
	Credential string             `json:"-"`
}

// URL joins path onto the base URL.
func (e Endpoint) URL(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// HasCredential reports whether a credential is configured.
func (e Endpoint) HasCredential() bool {
	return e.Credential != ""
}

// MaskedCredential describes the credential without exposing any of it.
func (e Endpoint) MaskedCredential() string {
	if e.Credential == "" {
		return "[not set]"
	}
	sum := sha256.Sum256([]byte(e.Credential))
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(e.Credential), hex.EncodeToString(sum[:4]))
}

// NormalizeEndpoint turns user input into a base URL: http:// is added
// when no scheme is given, trailing slashes are trimmed, and suffix is
// appended unless the path already ends with it. Query and fragment are
// dropped.
//
//	NormalizeEndpoint("example.com:4000", "/v1") // http://example.com:4000/v1
//	NormalizeEndpoint("http://x/v1/", "/v1")     // http://x/v1
func NormalizeEndpoint(raw, suffix string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ConfigurationError{Endpoint: raw, Reason: "empty endpoint"}
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", &ConfigurationError{Endpoint: raw, Reason: "cannot parse", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigurationError{Endpoint: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Hostname() == "" {
		return "", &ConfigurationError{Endpoint: raw, Reason: "missing host"}
	}

	path := strings.TrimRight(u.Path, "/")
	if suffix != "" && !strings.HasSuffix(path, suffix) {
		path += suffix
	}
	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""

	return u.String(), nil
}
