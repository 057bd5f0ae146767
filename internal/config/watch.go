// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchDebounce is how long the file must stay quiet before a reload.
const WatchDebounce = 200 * time.Millisecond

// Watch reloads path whenever it changes and passes the result to onChange.
// Editors often write through a temp file and rename, so the parent
// directory is watched rather than the file itself. Reloads that fail to
// parse or validate are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger zerolog.Logger, onChange func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	logger = logger.With().Str("component", "config").Str("path", absPath).Logger()
	logger.Debug().Msg("watching config file")

	ticker := time.NewTicker(WatchDebounce / 2)
	defer ticker.Stop()

	var pendingSince time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pendingSince = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")

		case <-ticker.C:
			if pendingSince.IsZero() || time.Since(pendingSince) < WatchDebounce {
				continue
			}
			pendingSince = time.Time{}

			cfg, err := Load(absPath)
			if err != nil {
				logger.Warn().Err(err).Msg("config reload failed, keeping current settings")
				continue
			}
			logger.Info().Msg("config reloaded")
			onChange(cfg)
		}
	}
}
