// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the enchanted command line.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Global flags plus the command's own arguments
//   - App: Session, config and output streams shared by the handlers
//   - JSONResponse: Envelope written in --json mode
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    os.Exit(cli.ExitCode(err))
//	}
//	app := cli.NewApp(cfg, path, sess, logger, args)
//	if err := app.Run(ctx, cmd, args.Raw); err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.ExitCode(err))
//	}
//
// # Commands
//
//   - ask: One question, answer streamed to stdout
//   - chat: Interactive chat with history and slash commands
//   - models: Models offered by both providers
//   - status: Provider reachability, optionally starting a local Ollama
//   - config: Show, initialise, read and change settings
//
// Every command except chat supports --json.
package cli
