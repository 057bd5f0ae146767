// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport issues the HTTP requests behind every provider: the
// long-lived streaming chat call, plain GETs for model listings, and the
// bounded reachability probe.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultProbeTimeout bounds a reachability check.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultUserAgent is sent when Options.UserAgent is empty.
	DefaultUserAgent = "enchanted"

	// MaxResponseSize caps non-streaming bodies (model listings, errors).
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBody caps how much of a failed response is read for its message.
	maxErrorBody = 64 * 1024
)

// newStreamingClient returns a client with no overall timeout. Generations
// may run for minutes; only connection setup is bounded and the caller's
// context controls the rest.
func newStreamingClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2: true,
		},
	}
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Transport.
type Options struct {
	// ProbeTimeout bounds Probe. Zero means DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// RequestsPerSecond limits outbound Send and Get calls. Zero disables
	// the limiter.
	RequestsPerSecond float64

	// Burst is the limiter bucket size. Values below 1 are treated as 1.
	Burst int

	UserAgent string

	// HTTPClient replaces the default streaming client, mostly for tests.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// DefaultOptions returns options with no rate limit and a 5 second probe.
func DefaultOptions() Options {
	return Options{
		ProbeTimeout: DefaultProbeTimeout,
		Burst:        1,
		UserAgent:    DefaultUserAgent,
		Logger:       zerolog.Nop(),
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Request describes one outbound call. It is built fresh for every call
// and never shared.
type Request struct {
	Method     string
	URL        string
	Body       []byte
	Credential string

	// Stream asks for an event stream and hands back the open body.
	Stream bool

	// ID is a correlation identifier used only in logs.
	ID string
}

// Transport sends requests. It is safe for concurrent use and never
// retries on its own.
type Transport struct {
	client       *http.Client
	limiter      *rate.Limiter
	probeTimeout time.Duration
	userAgent    string
	logger       zerolog.Logger
}

// New creates a Transport, filling zero-valued options with defaults.
func New(opts Options) *Transport {
	t := &Transport{
		client:       opts.HTTPClient,
		probeTimeout: opts.ProbeTimeout,
		userAgent:    opts.UserAgent,
		logger:       opts.Logger.With().Str("component", "transport").Logger(),
	}
	if t.client == nil {
		t.client = newStreamingClient()
	}
	if t.probeTimeout <= 0 {
		t.probeTimeout = DefaultProbeTimeout
	}
	if t.userAgent == "" {
		t.userAgent = DefaultUserAgent
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return t
}

// ProbeTimeout returns the bound applied to Probe.
func (t *Transport) ProbeTimeout() time.Duration {
	return t.probeTimeout
}

// Send performs the request and returns the open response body on 200.
// The caller owns the body and must close it. A non-200 answer is an
// *HTTPError, anything below HTTP is a *TransportError.
func (t *Transport) Send(ctx context.Context, req Request) (io.ReadCloser, error) {
	if err := t.wait(ctx, req.URL); err != nil {
		return nil, err
	}

	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{Op: "send", URL: req.URL, Err: err}
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.logger.Debug().Err(err).Str("request_id", req.ID).Str("url", req.URL).Msg("request failed")
		return nil, &TransportError{Op: "send", URL: req.URL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		herr := newHTTPError(resp.StatusCode, req.URL, body)
		t.logger.Debug().
			Str("request_id", req.ID).
			Int("status", resp.StatusCode).
			Str("message", herr.Message).
			Msg("request rejected")
		return nil, herr
	}

	t.logger.Debug().
		Str("request_id", req.ID).
		Str("url", req.URL).
		Dur("latency", time.Since(start)).
		Msg("response headers received")
	return resp.Body, nil
}

// Get fetches a small JSON document, such as a model listing.
func (t *Transport) Get(ctx context.Context, url, credential string) ([]byte, error) {
	body, err := t.Send(ctx, Request{Method: http.MethodGet, URL: url, Credential: credential})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return nil, &TransportError{Op: "read", URL: url, Err: err}
	}
	return data, nil
}

// Probe reports whether url answers a GET with 200 within the probe
// timeout. It never returns an error; every failure is false.
func (t *Transport) Probe(ctx context.Context, url, credential string) bool {
	ctx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()

	req, err := t.newRequest(ctx, Request{Method: http.MethodGet, URL: url, Credential: credential})
	if err != nil {
		t.logger.Debug().Err(err).Str("url", url).Msg("probe request invalid")
		return false
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug().Err(err).Str("url", url).Msg("probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return resp.StatusCode == http.StatusOK
}

// wait blocks on the outbound limiter when one is configured.
func (t *Transport) wait(ctx context.Context, url string) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: "wait", URL: url, Err: err}
	}
	return nil
}

// newRequest builds the HTTP request with the standard header set.
func (t *Transport) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if req.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	}
	return httpReq, nil
}
