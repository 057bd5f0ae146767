// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/model"
)

// =============================================================================
// REACHABILITY MONITOR
// =============================================================================

// Monitor periodically probes the selected provider and reports when its
// reachability changes. Switching provider counts as a change.
type Monitor struct {
	sess     *Session
	interval time.Duration
	logger   zerolog.Logger

	mu        sync.Mutex
	known     bool
	kind      model.ProviderKind
	reachable bool
	lastCheck time.Time
	listeners []func(model.ProviderKind, bool)
}

// NewMonitor creates a monitor. It does nothing until Run is called.
func NewMonitor(sess *Session, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		sess:     sess,
		interval: interval,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// OnChange registers fn to be called after each transition. Callbacks run
// on the monitor goroutine and must not block.
func (m *Monitor) OnChange(fn func(kind model.ProviderKind, reachable bool)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Reachable reports the result of the latest probe. It is false before
// the first probe completes.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reachable
}

// LastCheck is when the latest probe finished.
func (m *Monitor) LastCheck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCheck
}

// Run probes immediately and then every interval until ctx is done. A
// non-positive interval probes once and returns.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check probes the selected provider once and notifies listeners when the
// result differs from the previous one.
func (m *Monitor) Check(ctx context.Context) bool {
	kind := m.sess.Active()
	ok := m.sess.Provider(kind).Reachable(ctx)
	if ctx.Err() != nil {
		// A probe cut short by shutdown says nothing about the server.
		return m.Reachable()
	}

	m.mu.Lock()
	changed := !m.known || m.kind != kind || m.reachable != ok
	m.known = true
	m.kind = kind
	m.reachable = ok
	m.lastCheck = time.Now()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if changed {
		ev := m.logger.Info()
		if !ok {
			ev = m.logger.Warn()
		}
		ev.Str("provider", string(kind)).Bool("reachable", ok).Msg("reachability changed")
		for _, fn := range listeners {
			fn(kind, ok)
		}
	}
	return ok
}
