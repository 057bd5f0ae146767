// enchanted - Chat with Ollama and OpenAI-compatible models from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/enchanted/internal/cli"
	"github.com/jeranaias/enchanted/internal/config"
	"github.com/jeranaias/enchanted/internal/logging"
	"github.com/jeranaias/enchanted/internal/session"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		return fail(cmd, args, err)
	}

	// Help and version never touch the config.
	if cmd == cli.CmdHelp || cmd == cli.CmdVersion {
		app := cli.NewApp(nil, "", nil, logging.New(logging.Options{}), args)
		if err := app.Run(context.Background(), cmd, args.Raw); err != nil {
			return fail(cmd, args, err)
		}
		return cli.ExitSuccess
	}

	_ = config.LoadDotEnv()

	path := args.ConfigPath
	if path == "" {
		if path, err = config.Path(); err != nil {
			return fail(cmd, args, &cli.ConfigError{Path: "~/.enchanted/config.toml", Err: err})
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		// config set must still be able to repair a broken file.
		if cmd != cli.CmdConfig {
			return fail(cmd, args, &cli.ConfigError{Path: path, Err: err})
		}
		cfg = config.Default()
	}
	if args.Provider != "" {
		cfg.Provider = args.Provider
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fail(cmd, args, &cli.ConfigError{Path: path, Err: err})
	}

	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	var sess *session.Session
	if cmd.NeedsSession() {
		if sess, err = session.New(cfg, logger); err != nil {
			return fail(cmd, args, err)
		}
		logger.Debug().Str("session", sess.ID()).Str("provider", sess.Active().String()).Msg("session started")
	}

	// chat handles Ctrl+C itself so that it cancels one answer, not the
	// whole program.
	ctx := context.Background()
	if cmd != cli.CmdChat {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	app := cli.NewApp(cfg, path, sess, logger, args)
	if err := app.Run(ctx, cmd, args.Raw); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr)
		}
		return fail(cmd, args, err)
	}
	return cli.ExitSuccess
}

// fail reports err and returns its exit code. JSON envelopes go to stdout
// so scripts read success and failure from the same stream.
func fail(cmd cli.Command, args cli.Args, err error) int {
	w := os.Stderr
	if args.JSON {
		w = os.Stdout
	}
	cli.DisplayError(w, cmd.String(), err, args.JSON)
	return cli.ExitCode(err)
}
