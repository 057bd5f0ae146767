// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// enchanted.
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (ENCHANTED_*), including those from .env files
//   - ~/.enchanted/config.toml
//   - Built-in defaults
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - OllamaConfig, OpenAIConfig: Endpoint and default model per backend
//   - TransportConfig: Probe timeout and request rate limiting
//   - Duration: time.Duration written as "5s" in TOML
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.LoadDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Change a value and persist it:
//
//	if err := cfg.Set("ollama.default_model", "llava"); err != nil {
//	    return err
//	}
//	return cfg.Save(path)
//
// Follow edits made while running:
//
//	go config.Watch(ctx, path, logger, sess.Apply)
package config
