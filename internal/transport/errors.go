// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// These match an *HTTPError with the corresponding status through
// errors.Is, so callers can branch without inspecting status codes.
var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
)

// =============================================================================
// HTTP ERROR
// =============================================================================

// HTTPError is returned when the server answers the primary call with
// anything other than 200.
type HTTPError struct {
	StatusCode int
	URL        string

	// Message is the server's own explanation when the body carried one.
	Message string
}

func (e *HTTPError) Error() string {
	status := fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		return status + ": " + e.Message
	}
	return status
}

// Is maps status codes onto the sentinel errors.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// errorBody covers both error shapes seen in the wild:
// {"error":"..."} from Ollama and {"error":{"message":"..."}} from
// OpenAI-compatible gateways.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// newHTTPError builds an HTTPError from a response status and body.
func newHTTPError(status int, url string, body []byte) *HTTPError {
	return &HTTPError{StatusCode: status, URL: url, Message: errorMessage(body)}
}

// errorMessage pulls a readable message out of an error body, falling back
// to the trimmed body text.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var s string
		if err := json.Unmarshal(eb.Error, &s); err == nil {
			return s
		}
		var obj errorObject
		if err := json.Unmarshal(eb.Error, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}

// =============================================================================
// TRANSPORT ERROR
// =============================================================================

// TransportError wraps a failure below HTTP: DNS, refused connections,
// TLS, a dropped stream or a cancelled context.
type TransportError struct {
	Op  string // "send", "read", "wait"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// HELPERS
// =============================================================================

// IsHTTPError reports whether err is an HTTPError.
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
