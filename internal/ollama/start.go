// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/provider"
)

// =============================================================================
// LOCAL SERVER STARTUP
// =============================================================================

var (
	// ErrNotLocal is returned when the endpoint is on another machine and
	// so cannot be started from here.
	ErrNotLocal = errors.New("ollama endpoint is not on this machine")

	// ErrNotInstalled is returned when no ollama executable can be found.
	ErrNotInstalled = errors.New("ollama executable not found")
)

// DefaultStartWait bounds how long EnsureRunning waits for a new server.
const DefaultStartWait = 10 * time.Second

// pollInterval is the gap between readiness probes during startup.
const pollInterval = 500 * time.Millisecond

// IsLocalEndpoint reports whether ep points at a loopback address.
func IsLocalEndpoint(ep provider.Endpoint) bool {
	u, err := url.Parse(ep.BaseURL)
	if err != nil {
		return false
	}
	return isLoopback(u.Host)
}

func isLoopback(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// EnsureRunning returns nil if p is reachable. Otherwise, when p points at
// this machine, it launches "ollama serve" in the background and waits up
// to wait for it to answer.
func EnsureRunning(ctx context.Context, p provider.Provider, wait time.Duration, logger zerolog.Logger) error {
	if p.Reachable(ctx) {
		return nil
	}
	if !IsLocalEndpoint(p.Endpoint()) {
		return ErrNotLocal
	}
	if wait <= 0 {
		wait = DefaultStartWait
	}

	path, err := findExecutable()
	if err != nil {
		return err
	}

	logger.Info().Str("path", path).Msg("starting ollama")
	if err := startProcess(path); err != nil {
		return fmt.Errorf("start %s: %w", path, err)
	}

	start := time.Now()
	deadline := start.Add(wait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
		if p.Reachable(ctx) {
			logger.Info().Dur("elapsed", time.Since(start)).Msg("ollama is ready")
			return nil
		}
	}
	return fmt.Errorf("ollama started but not responding after %s", wait)
}
