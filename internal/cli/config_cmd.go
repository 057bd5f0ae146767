// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/enchanted/internal/config"
)

// ConfigValueData is the result of config get and config set.
type ConfigValueData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Path  string      `json:"path,omitempty"`
}

func (a *App) handleConfig(ctx context.Context, raw []string) (interface{}, error) {
	args := NewArgParser(raw, "force", "f")
	path := a.ConfigPath

	switch sub := args.Positional(0); sub {
	case "", "show":
		cfg, err := config.Load(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		redacted := cfg.Redacted()
		if !a.JSON {
			fmt.Fprintln(a.Out, DimStyle.Render("# "+path))
			if err := toml.NewEncoder(a.Out).Encode(redacted); err != nil {
				return nil, err
			}
		}
		return redacted, nil

	case "path":
		if !a.JSON {
			fmt.Fprintln(a.Out, path)
		}
		return map[string]string{"path": path}, nil

	case "init":
		if _, err := os.Stat(path); err == nil && !args.BoolFlag("force", "f") {
			return nil, &UsageError{
				Message: fmt.Sprintf("%s already exists", path),
				Example: "enchanted config init --force",
			}
		}
		if err := config.Default().Save(path); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		a.infof("Wrote %s\n", path)
		return map[string]string{"path": path}, nil

	case "get":
		key := args.Positional(1)
		if key == "" {
			return nil, ErrMissingArgument("key", "enchanted config get ollama.url")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		v, err := cfg.Get(key)
		if err != nil {
			return nil, &UsageError{Message: err.Error(), Example: "keys: " + keyList()}
		}
		if !a.JSON {
			fmt.Fprintln(a.Out, v)
		}
		return ConfigValueData{Key: key, Value: v}, nil

	case "set":
		key, value := args.Positional(1), args.Positional(2)
		if key == "" || args.PositionalCount() < 3 {
			return nil, ErrMissingArgument("key and value", "enchanted config set ollama.default_model llama3")
		}
		// Only the file is edited; environment overrides must not be
		// written back.
		cfg, err := loadFileOnly(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if err := cfg.Set(key, value); err != nil {
			return nil, &UsageError{Message: err.Error(), Example: "keys: " + keyList()}
		}
		if err := cfg.Validate(); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if err := cfg.Save(path); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		v, _ := cfg.Get(key)
		a.infof("%s = %v\n", key, v)
		return ConfigValueData{Key: key, Value: v, Path: path}, nil

	default:
		return nil, &UsageError{
			Message: fmt.Sprintf("unknown config subcommand %q", sub),
			Example: "enchanted config show|path|init|get KEY|set KEY VALUE",
		}
	}
}

// loadFileOnly reads path over the defaults without environment overrides.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if err := config.LoadTOML(cfg, path); err != nil {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

func keyList() string {
	return strings.Join(config.Keys(), ", ")
}
