// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jeranaias/enchanted/internal/config"
	"github.com/jeranaias/enchanted/internal/session"
)

// App carries everything a command handler needs. Handlers write to Out
// and Err instead of the process streams so they can be tested.
type App struct {
	Config     *config.Config
	ConfigPath string
	Session    *session.Session // nil for commands that do not need one
	Logger     zerolog.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer

	JSON  bool
	Quiet bool

	// ProviderFlag is the --provider value, if any.
	ProviderFlag string
}

// NewApp creates an App bound to the process streams.
func NewApp(cfg *config.Config, path string, sess *session.Session, logger zerolog.Logger, args Args) *App {
	return &App{
		Config:     cfg,
		ConfigPath: path,
		Session:    sess,
		Logger:     logger,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		JSON:       args.JSON,
		Quiet:      args.Quiet,

		ProviderFlag: args.Provider,
	}
}

// Run executes cmd. In JSON mode the handler's result is wrapped in a
// JSONResponse; errors are returned for the caller to display.
func (a *App) Run(ctx context.Context, cmd Command, raw []string) error {
	var handler func(context.Context, []string) (interface{}, error)
	switch cmd {
	case CmdAsk:
		handler = a.handleAsk
	case CmdChat:
		handler = a.handleChat
	case CmdModels:
		handler = a.handleModels
	case CmdStatus:
		handler = a.handleStatus
	case CmdConfig:
		handler = a.handleConfig
	case CmdVersion:
		handler = func(context.Context, []string) (interface{}, error) {
			if !a.JSON {
				PrintVersion(a.Out)
			}
			return VersionInfo(), nil
		}
	default:
		PrintUsage(a.Out)
		return nil
	}

	data, err := handler(ctx, raw)
	if err != nil || !a.JSON {
		return err
	}
	return NewJSONResponse(cmd.String(), data).Write(a.Out)
}

// interactive reports whether Out is a terminal that can take styling.
func (a *App) interactive() bool {
	return !a.JSON && isTerminal(a.Out)
}

// infof writes a progress note to Err unless quiet.
func (a *App) infof(format string, args ...interface{}) {
	if a.Quiet {
		return
	}
	fmt.Fprintf(a.Err, format, args...)
}
