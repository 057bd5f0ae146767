// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/codec"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/stream"
	"github.com/jeranaias/enchanted/internal/transport"
)

// =============================================================================
// DIALECT
// =============================================================================

// Dialect describes how one backend family is addressed and spoken to.
type Dialect struct {
	Kind model.ProviderKind

	// DefaultURL is used when Configure is given an empty endpoint.
	DefaultURL string

	// Suffix is appended to the base path by NormalizeEndpoint.
	Suffix string

	// ChatPath and ModelsPath are relative to the base URL.
	ChatPath   string
	ModelsPath string

	Codec codec.Codec
}

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client.
type Options struct {
	// Transport is shared between clients. Nil builds a default one.
	Transport *transport.Transport

	// MaxConsecutiveSkips is passed to every stream. Zero never aborts.
	MaxConsecutiveSkips int

	Logger zerolog.Logger
}

// Client implements Provider for any Dialect. The endpoint lives behind an
// atomic pointer and is replaced wholesale, so a request in flight keeps
// the configuration it started with.
type Client struct {
	dialect   Dialect
	transport *transport.Transport
	endpoint  atomic.Pointer[Endpoint]
	maxSkips  atomic.Int64
	logger    zerolog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a client pointed at the dialect's default URL.
func NewClient(d Dialect, opts Options) *Client {
	if opts.Transport == nil {
		topts := transport.DefaultOptions()
		topts.Logger = opts.Logger
		opts.Transport = transport.New(topts)
	}

	c := &Client{
		dialect:   d,
		transport: opts.Transport,
		logger:    opts.Logger.With().Str("component", "provider").Str("provider", string(d.Kind)).Logger(),
	}
	c.maxSkips.Store(int64(opts.MaxConsecutiveSkips))

	base, err := NormalizeEndpoint(d.DefaultURL, d.Suffix)
	if err != nil {
		// Dialect defaults are constants; this only trips on a typo.
		panic(fmt.Sprintf("provider %s: bad default URL: %v", d.Kind, err))
	}
	c.endpoint.Store(&Endpoint{Kind: d.Kind, BaseURL: base})
	return c
}

// Kind reports the wire dialect.
func (c *Client) Kind() model.ProviderKind {
	return c.dialect.Kind
}

// Dialect returns the dialect description.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Endpoint returns a copy of the current configuration.
func (c *Client) Endpoint() Endpoint {
	return *c.endpoint.Load()
}

// Configure normalizes endpoint and swaps in the new configuration. An
// empty endpoint selects the dialect default.
func (c *Client) Configure(endpoint, credential string) error {
	raw := endpoint
	if strings.TrimSpace(raw) == "" {
		raw = c.dialect.DefaultURL
	}

	base, err := NormalizeEndpoint(raw, c.dialect.Suffix)
	if err != nil {
		return err
	}

	c.endpoint.Store(&Endpoint{
		Kind:       c.dialect.Kind,
		BaseURL:    base,
		Credential: strings.TrimSpace(credential),
	})
	c.logger.Debug().Str("base_url", base).Bool("credential", credential != "").Msg("endpoint configured")
	return nil
}

// SetMaxConsecutiveSkips changes the malformed-frame bound for new streams.
func (c *Client) SetMaxConsecutiveSkips(n int) {
	c.maxSkips.Store(int64(n))
}

// ListModels fetches and classifies the backend's models.
func (c *Client) ListModels(ctx context.Context) ([]model.Descriptor, error) {
	ep := c.Endpoint()

	body, err := c.transport.Get(ctx, ep.URL(c.dialect.ModelsPath), ep.Credential)
	if err != nil {
		return nil, err
	}

	ids, err := c.dialect.Codec.DecodeModels(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s model list: %w", c.dialect.Kind, err)
	}
	return model.Describe(c.dialect.Kind, ids), nil
}

// Reachable reports whether the model listing answers 200 within the
// transport's probe timeout.
func (c *Client) Reachable(ctx context.Context) bool {
	ep := c.Endpoint()
	return c.transport.Probe(ctx, ep.URL(c.dialect.ModelsPath), ep.Credential)
}

// Chat sends conv to modelID and returns the streamed answer. The caller
// must drain or Close the stream.
func (c *Client) Chat(ctx context.Context, modelID string, conv model.Conversation, opts ChatOptions) (*stream.Stream, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, ErrNoModel
	}
	if len(conv) == 0 {
		return nil, ErrEmptyConversation
	}

	ep := c.Endpoint()

	body, err := c.dialect.Codec.EncodeRequest(conv, modelID, true, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.dialect.Kind, err)
	}

	id := uuid.NewString()
	url := ep.URL(c.dialect.ChatPath)
	c.logger.Debug().
		Str("request_id", id).
		Str("model", modelID).
		Int("messages", len(conv)).
		Bool("images", conv.HasImages()).
		Msg("chat request")

	resp, err := c.transport.Send(ctx, transport.Request{
		Method:     http.MethodPost,
		URL:        url,
		Body:       body,
		Credential: ep.Credential,
		Stream:     true,
		ID:         id,
	})
	if err != nil {
		return nil, err
	}

	return stream.Open(ctx, resp, c.dialect.Codec, stream.Options{
		ID:                  id,
		URL:                 url,
		MaxConsecutiveSkips: int(c.maxSkips.Load()),
		Logger:              c.logger,
	}), nil
}
