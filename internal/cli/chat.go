// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat with line editing and history.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/enchanted/internal/config"
	"github.com/jeranaias/enchanted/internal/model"
	"github.com/jeranaias/enchanted/internal/session"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// chatState is the conversation held by one REPL.
type chatState struct {
	conv        model.Conversation
	model       string // explicit choice; empty follows the registry
	temperature *float64

	startTime time.Time
	turns     int
	deltas    int

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *chatState) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// cancelTurn stops the answer being streamed, if any. It reports whether
// there was one.
func (s *chatState) cancelTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// historyFile is where prompts are remembered between runs.
func historyFile() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func loadHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

// saveHistory persists prompts with owner-only permissions.
func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func (a *App) handleChat(ctx context.Context, raw []string) (interface{}, error) {
	if a.JSON {
		return nil, &UsageError{Message: "chat is interactive and does not support --json", Example: `enchanted --json ask "..."`}
	}

	args := NewArgParser(raw)
	temp, err := args.FlagFloat("temperature", "t")
	if err != nil {
		return nil, err
	}
	state := &chatState{
		model:       args.Flag("model", "m"),
		temperature: temp,
		startTime:   time.Now(),
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	a.startBackground(bgCtx)

	// Ctrl+C while an answer streams cancels that answer only. At the
	// prompt liner turns it into ErrPromptAborted instead.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-bgCtx.Done():
				return
			case <-sigCh:
				if state.cancelTurn() {
					fmt.Fprintln(a.Err, "\n"+WarningStyle.Render("[Cancelled]"))
				}
			}
		}
	}()

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	hist := historyFile()
	loadHistory(line, hist)
	defer func() {
		saveHistory(line, hist)
		line.Close()
	}()

	if !a.Quiet {
		a.printWelcome(ctx, state)
	}

	for {
		input, err := line.Prompt("enchanted> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed stdin all end the chat.
			fmt.Fprintln(a.Out)
			a.printExitSummary(state)
			return nil, nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			more, err := a.handleSlashCommand(ctx, state, input)
			if err != nil {
				fmt.Fprintf(a.Err, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !more {
				a.printExitSummary(state)
				return nil, nil
			}
			continue
		}

		if err := a.chatTurn(ctx, state, input); err != nil {
			fmt.Fprintf(a.Err, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// startBackground runs the reachability monitor and the config watcher
// until ctx is done.
func (a *App) startBackground(ctx context.Context) {
	interval := config.DefaultPingInterval
	if a.Config != nil {
		interval = a.Config.PingInterval.Duration
	}
	if interval > 0 {
		mon := session.NewMonitor(a.Session, interval, a.Logger)
		var wasDown bool
		mon.OnChange(func(kind model.ProviderKind, ok bool) {
			switch {
			case !ok:
				wasDown = true
				fmt.Fprintf(a.Err, "\n%s %s is not reachable\n", WarningStyle.Render("[Offline]"), kind.DisplayName())
			case wasDown:
				wasDown = false
				fmt.Fprintf(a.Err, "\n%s %s is back\n", SuccessStyle.Render("[Online]"), kind.DisplayName())
			}
		})
		go mon.Run(ctx)
	}

	if a.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, a.ConfigPath, a.Logger, func(cfg *config.Config) {
				a.reloadConfig(ctx, cfg)
			})
			if err != nil {
				a.Logger.Debug().Err(err).Msg("config watch unavailable")
			}
		}()
	}
}

// reloadConfig applies an edited config file. A --provider flag keeps
// precedence over the file for the whole run.
func (a *App) reloadConfig(ctx context.Context, cfg *config.Config) {
	if a.ProviderFlag != "" {
		cfg.Provider = a.ProviderFlag
	}
	if err := a.Session.Apply(cfg); err != nil {
		a.Logger.Warn().Err(err).Msg("some settings were not applied")
	}
	if err := a.Session.RefreshModels(ctx); err != nil {
		a.Logger.Debug().Err(err).Msg("model refresh after reload")
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// chatTurn sends input with the conversation so far and streams the
// answer. The exchange is kept only when the answer completes.
func (a *App) chatTurn(ctx context.Context, state *chatState, input string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	state.setCancel(cancel)
	defer state.setCancel(nil)

	conv := state.conv.Append(model.NewUserMessage(input))
	s, err := a.Session.Chat(turnCtx, conv, session.ChatOptions{
		Model:       state.model,
		Temperature: state.temperature,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	var answer strings.Builder
	for d, err := range s.Deltas() {
		if err != nil {
			fmt.Fprintln(a.Out)
			if turnCtx.Err() != nil && ctx.Err() == nil {
				// Cancelled by the user; the partial answer is dropped.
				return nil
			}
			return err
		}
		if d.Text != "" {
			answer.WriteString(d.Text)
			fmt.Fprint(a.Out, d.Text)
		}
	}
	fmt.Fprintln(a.Out)

	state.conv = conv.Append(model.NewAssistantMessage(answer.String()))
	state.turns++
	stats := s.Stats()
	state.deltas += stats.Deltas
	a.infof("%s\n", DimStyle.Render(stats.Format()))
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func (a *App) handleSlashCommand(ctx context.Context, state *chatState, input string) (bool, error) {
	command, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	sess := a.Session

	switch strings.ToLower(command) {
	case "/help", "/h", "/?", "/":
		a.printChatHelp()

	case "/exit", "/quit", "/q":
		return false, nil

	case "/clear", "/c":
		state.conv = nil
		fmt.Fprintln(a.Out, DimStyle.Render("[Conversation cleared]"))

	case "/models":
		reg := sess.Registry(sess.Active())
		if err := reg.Refresh(ctx); err != nil {
			return true, err
		}
		current := state.model
		if current == "" {
			current = reg.Resolve()
		}
		for _, d := range reg.Current() {
			marker := "  "
			if d.ID == current {
				marker = HighlightStyle.Render("* ")
			}
			caps := ""
			if d.SupportsImages {
				caps = DimStyle.Render(" images")
			}
			fmt.Fprintf(a.Out, "%s%s%s\n", marker, d.ID, caps)
		}

	case "/model", "/m":
		reg := sess.Registry(sess.Active())
		if rest == "" {
			current := state.model
			if current == "" {
				current = sess.ResolveModel(ctx)
			}
			fmt.Fprintf(a.Out, "Model: %s\n", current)
			return true, nil
		}
		if _, ok := reg.Lookup(rest); !ok && len(reg.Current()) > 0 {
			fmt.Fprintf(a.Err, "%s %q is not listed by %s, using it anyway\n",
				WarningStyle.Render("[Warning]"), rest, sess.Active().DisplayName())
		}
		state.model = rest
		fmt.Fprintf(a.Out, "%s Switched to model: %s\n", SuccessStyle.Render("[OK]"), rest)

	case "/provider", "/p":
		if rest == "" {
			fmt.Fprintf(a.Out, "Provider: %s\n", sess.Active().DisplayName())
			return true, nil
		}
		if err := sess.Select(rest); err != nil {
			return true, err
		}
		// Model names do not carry over between providers.
		state.model = ""
		if err := sess.Registry(sess.Active()).Refresh(ctx); err != nil {
			fmt.Fprintf(a.Err, "%s %v\n", WarningStyle.Render("[Warning]"), err)
		}
		fmt.Fprintf(a.Out, "%s Switched to %s\n", SuccessStyle.Render("[OK]"), sess.Active().DisplayName())

	case "/system":
		sess.SetSystemPrompt(rest)
		if rest == "" {
			fmt.Fprintln(a.Out, DimStyle.Render("[System prompt cleared]"))
		} else {
			fmt.Fprintln(a.Out, DimStyle.Render("[System prompt set]"))
		}

	case "/status", "/s":
		for kind, ok := range sess.Status(ctx) {
			fmt.Fprintf(a.Out, "%s %s\n", RenderStatus(ok), kind.DisplayName())
		}

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (a *App) printWelcome(ctx context.Context, state *chatState) {
	sess := a.Session
	current := state.model
	if current == "" {
		current = sess.ResolveModel(ctx)
	}
	if current == "" {
		current = "(none, use /models)"
	}
	fmt.Fprintln(a.Out, TitleStyle.Render("enchanted chat"))
	fmt.Fprintf(a.Out, "%s%s\n", RenderLabel("Provider"), sess.Active().DisplayName())
	fmt.Fprintf(a.Out, "%s%s\n", RenderLabel("Model"), current)
	fmt.Fprintln(a.Out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(a.Out)
}

func (a *App) printChatHelp() {
	fmt.Fprint(a.Out, `Commands:
  /models              List models of the active provider
  /model [ID]          Show or switch the model
  /provider [KIND]     Show or switch provider (ollama, openai)
  /system [TEXT]       Set the system prompt; empty clears it
  /status              Check provider reachability
  /clear               Start a new conversation
  /exit                Leave
`)
}

func (a *App) printExitSummary(state *chatState) {
	if a.Quiet || state.turns == 0 {
		return
	}
	elapsed := time.Since(state.startTime).Round(time.Second)
	fmt.Fprintf(a.Out, "%s\n", DimStyle.Render(fmt.Sprintf("%d turns · %d deltas · %s", state.turns, state.deltas, elapsed)))
}
