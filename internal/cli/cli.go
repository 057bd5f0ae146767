// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for enchanted.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdAsk
	CmdChat
	CmdModels
	CmdStatus
	CmdConfig
	CmdVersion
)

// String returns the name used in JSON output.
func (c Command) String() string {
	switch c {
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdModels:
		return "models"
	case CmdStatus:
		return "status"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// NeedsSession reports whether the command talks to a provider.
func (c Command) NeedsSession() bool {
	switch c {
	case CmdAsk, CmdChat, CmdModels, CmdStatus:
		return true
	}
	return false
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Provider   string
	LogLevel   string
	JSON       bool
	Quiet      bool

	// Raw holds the command's own arguments.
	Raw []string
}

const usageText = `enchanted - chat with Ollama and OpenAI-compatible models from the terminal

Usage:
  enchanted [global flags] <command> [args]

Commands:
  ask [flags] <prompt...>    Ask one question and stream the answer
  chat [flags]               Interactive chat
  models [--refresh-only]    List models offered by both providers
  status [--start]           Check that the providers are reachable
  config <subcommand>        Show or change settings
  version                    Show version information
  help                       Show this help

Ask flags:
  -m, --model ID             Model to use (default: configured or first listed)
  -t, --temperature T        Sampling temperature
  -i, --image FILE           Attach an image to the prompt
  -s, --system TEXT          System prompt for this request
  -r, --render               Render the answer as markdown
  A prompt of "-" or no prompt at all reads from stdin.

Chat flags:
  -m, --model ID             Model to use
  -t, --temperature T        Sampling temperature

Chat commands:
  /models                    List models of the active provider
  /model ID                  Switch model
  /provider ollama|openai    Switch provider
  /system TEXT               Set the system prompt (empty clears it)
  /clear                     Start a new conversation
  /exit                      Leave

Config subcommands:
  config show                Print settings (credentials redacted)
  config path                Print the config file location
  config init [--force]      Write a default config file
  config get KEY             Print one setting, e.g. ollama.url
  config set KEY VALUE       Change one setting and save

Global flags:
  -c, --config PATH          Config file (default: ~/.enchanted/config.toml)
  -p, --provider KIND        Provider for this run: ollama or openai
      --log-level LEVEL      trace, debug, info, warn, error, disabled
      --json                 Machine-readable output
  -q, --quiet                Less output

Exit codes:
  0 ok, 1 error, 2 usage, 3 config, 4 network, 5 HTTP error

Examples:
  enchanted ask "why is the sky blue?"
  git diff | enchanted ask -m llama3 "review this diff"
  enchanted ask -m llava -i photo.jpg "what is in this picture?"
  enchanted --provider openai chat
  enchanted config set openai.url https://gateway.example.com
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// VersionInfo returns build information.
func VersionInfo() VersionData {
	return VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	v := VersionInfo()
	fmt.Fprintf(w, "enchanted %s\n", v.Version)
	fmt.Fprintf(w, "  Commit:  %s\n", v.GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", v.BuildDate)
	fmt.Fprintf(w, "  Go:      %s\n", v.GoVersion)
	fmt.Fprintf(w, "  OS/Arch: %s\n", v.Platform)
}

// Parse splits argv (without the program name) into a command and its
// arguments. Global flags may appear anywhere before "--".
func Parse(argv []string) (Command, Args, error) {
	remaining, args, err := parseGlobalFlags(argv)
	if err != nil {
		return CmdHelp, args, err
	}
	if len(remaining) == 0 {
		return CmdHelp, args, nil
	}

	cmd := remaining[0]
	args.Raw = remaining[1:]

	switch strings.ToLower(cmd) {
	case "ask", "a":
		return CmdAsk, args, nil
	case "chat":
		return CmdChat, args, nil
	case "models", "model", "ls":
		return CmdModels, args, nil
	case "status", "s":
		return CmdStatus, args, nil
	case "config", "cfg":
		return CmdConfig, args, nil
	case "version", "-v", "--version":
		return CmdVersion, args, nil
	case "help", "-h", "--help":
		return CmdHelp, args, nil
	default:
		example := "enchanted help"
		if s := SuggestCommand(cmd); s != "" {
			example = "enchanted " + s
		}
		return CmdHelp, args, &UsageError{
			Message: fmt.Sprintf("unknown command %q", cmd),
			Example: example,
		}
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args, error) {
	var (
		remaining []string
		args      Args
	)

	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(argv) {
			return "", &UsageError{Message: name + " needs a value"}
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}

		name, inline, hasInline := strings.Cut(arg, "=")
		var err error
		switch name {
		case "-c", "--config":
			if args.ConfigPath = inline; !hasInline {
				args.ConfigPath, err = value(&i, name)
			}
		case "-p", "--provider":
			if args.Provider = inline; !hasInline {
				args.Provider, err = value(&i, name)
			}
		case "--log-level":
			if args.LogLevel = inline; !hasInline {
				args.LogLevel, err = value(&i, name)
			}
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
		if err != nil {
			return nil, args, err
		}
	}

	return remaining, args, nil
}
